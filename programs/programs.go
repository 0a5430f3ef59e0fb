// Package programs embeds sample stackvm assembly programs.
package programs

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed *.asm
var files embed.FS

// Example describes an embedded sample program.
type Example struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Expected    string `json:"expected"` // Output of a successful run
	Code        string `json:"code"`
}

// Filename returns the embedded file name of the example.
func (e Example) Filename() string {
	return e.Name + ".asm"
}

// Lines returns the example source split into lines.
func (e Example) Lines() []string {
	return strings.Split(e.Code, "\n")
}

var examples = []Example{
	{
		Name:        "factorial",
		Description: "Recursive factorial of 5",
		Category:    "calls",
		Expected:    "120\n",
	},
	{
		Name:        "sum",
		Description: "Iterative sum of 0..9",
		Category:    "loops",
		Expected:    "45\n",
	},
	{
		Name:        "countdown",
		Description: "Count down from 3 with a loop",
		Category:    "loops",
		Expected:    "3\n2\n1\n",
	},
	{
		Name:        "floordiv",
		Description: "Floor division of negative operands",
		Category:    "arithmetic",
		Expected:    "-4\n-4\n3\n",
	},
}

var byName = map[string]Example{}

func init() {
	for i, ex := range examples {
		data, err := files.ReadFile(ex.Filename())
		if err != nil {
			panic(fmt.Sprintf("programs: missing embedded file %s", ex.Filename()))
		}
		examples[i].Code = string(data)
		byName[ex.Name] = examples[i]
	}
}

// Names returns the sorted names of all examples.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every example in presentation order.
func All() []Example {
	result := make([]Example, len(examples))
	copy(result, examples)
	return result
}

// Get returns the named example.
func Get(name string) (Example, bool) {
	ex, ok := byName[name]
	return ex, ok
}

// Lines returns the source lines of the named example, or nil if it does not
// exist.
func Lines(name string) []string {
	ex, ok := byName[name]
	if !ok {
		return nil
	}
	return ex.Lines()
}
