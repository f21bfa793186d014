package config

// SchemaFileName is the default class schema looked up by the CLI.
const SchemaFileName = "typetoken.yaml"

// SchemaFileNames are all recognized schema file names, in lookup order.
var SchemaFileNames = []string{"typetoken.yaml", "typetoken.yml"}

// IsTestMode indicates if the program is running in test mode.
// Inference variable names are normalized in this mode so that output is
// deterministic regardless of how many variables a derivation allocated.
var IsTestMode = false

// Well-known class names
const (
	ObjectClassName       = "Object"
	StringClassName       = "String"
	CharSequenceClassName = "CharSequence"
	ComparableClassName   = "Comparable"
	NumberClassName       = "Number"
	IntegerClassName      = "Integer"
	LongClassName         = "Long"
	ShortClassName        = "Short"
	ByteClassName         = "Byte"
	DoubleClassName       = "Double"
	FloatClassName        = "Float"
	BooleanClassName      = "Boolean"
	CharacterClassName    = "Character"
	VoidClassName         = "Void"
	IterableClassName     = "Iterable"
	CollectionClassName   = "Collection"
	ListClassName         = "List"
	ArrayListClassName    = "ArrayList"
)

// Primitive type names
const (
	BooleanPrimName = "boolean"
	BytePrimName    = "byte"
	ShortPrimName   = "short"
	CharPrimName    = "char"
	IntPrimName     = "int"
	LongPrimName    = "long"
	FloatPrimName   = "float"
	DoublePrimName  = "double"
	VoidPrimName    = "void"
)

// ConstructorName is the member name under which constructors are listed.
const ConstructorName = "<init>"
