// forge/pkg/yarax/keywords.go

package yarax

type Keyword struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Description string `json:"description"`
	InsertValue string `json:"insertValue"`
}

type Module struct {
	Name      string    `json:"name"`
	Functions []Keyword `json:"functions,omitempty"`
	Fields    []Keyword `json:"fields,omitempty"`
	Constants []Keyword `json:"constants,omitempty"`
}

// Modules is the keyword browser catalogue.
var Modules = []Module{
	{
		Name: "PE Module",
		Functions: []Keyword{
			{Name: "exports", Signature: "pe.exports('func_name')", Description: "Checks if a function is exported.", InsertValue: "pe.exports('')"},
			{Name: "imports", Signature: "pe.imports('dll', 'func')", Description: "Checks for a specific imported function.", InsertValue: "pe.imports('', '')"},
			{Name: "is_dll", Signature: "pe.is_dll()", Description: "Returns true if the file is a DLL.", InsertValue: "pe.is_dll()"},
		},
		Fields: []Keyword{
			{Name: "entry_point", Signature: "pe.entry_point", Description: "The entry point RVA of the PE.", InsertValue: "pe.entry_point"},
			{Name: "number_of_sections", Signature: "pe.number_of_sections", Description: "Number of sections in the PE.", InsertValue: "pe.number_of_sections"},
			{Name: "machine", Signature: "pe.machine", Description: "The machine type (e.g., pe.MACHINE_AMD64).", InsertValue: "pe.machine"},
		},
		Constants: []Keyword{
			{Name: "MACHINE_AMD64", Signature: "pe.MACHINE_AMD64", Description: "Constant for AMD64 machine type.", InsertValue: "pe.MACHINE_AMD64"},
			{Name: "MACHINE_I386", Signature: "pe.MACHINE_I386", Description: "Constant for I386 machine type.", InsertValue: "pe.MACHINE_I386"},
		},
	},
	{
		Name: "ELF Module",
		Fields: []Keyword{
			{Name: "entry_point", Signature: "elf.entry_point", Description: "The entry point address of the ELF.", InsertValue: "elf.entry_point"},
			{Name: "number_of_sections", Signature: "elf.number_of_sections", Description: "Number of sections.", InsertValue: "elf.number_of_sections"},
		},
	},
	{
		Name: "Math Module",
		Functions: []Keyword{
			{Name: "entropy", Signature: "math.entropy(offset, size)", Description: "Calculates entropy of a data block.", InsertValue: "math.entropy(0, filesize)"},
			{Name: "monte_carlo_pi", Signature: "math.monte_carlo_pi(offset, size)", Description: "Calculates PI using Monte Carlo method.", InsertValue: "math.monte_carlo_pi(0, filesize)"},
		},
	},
	{
		Name: "Hash Module",
		Functions: []Keyword{
			{Name: "md5", Signature: "hash.md5(offset, size)", Description: "Calculates MD5 hash of a data block.", InsertValue: "hash.md5(0, filesize)"},
			{Name: "sha256", Signature: "hash.sha256(offset, size)", Description: "Calculates SHA256 hash of a data block.", InsertValue: "hash.sha256(0, filesize)"},
		},
	},
	{
		Name: "DotNet Module",
		Fields: []Keyword{
			{Name: "version", Signature: "dotnet.version", Description: "The runtime version of the .NET assembly.", InsertValue: "dotnet.version"},
			{Name: "number_of_streams", Signature: "dotnet.number_of_streams", Description: "Number of streams in the metadata root.", InsertValue: "dotnet.number_of_streams"},
		},
	},
}

// InsertAt inserts text into condition at byte offset pos, clamped to the
// condition bounds, and returns the new condition with the cursor after the
// inserted text.
func InsertAt(condition string, pos int, text string) (string, int) {
	return ReplaceRange(condition, pos, pos, text)
}

// ReplaceRange replaces condition[start:end] with text, the way a selection in
// an editor is overwritten. Offsets are clamped and swapped if reversed.
func ReplaceRange(condition string, start, end int, text string) (string, int) {
	start = clamp(start, 0, len(condition))
	end = clamp(end, 0, len(condition))
	if end < start {
		start, end = end, start
	}
	return condition[:start] + text + condition[end:], start + len(text)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
