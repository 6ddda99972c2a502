// # internal/engine/parser/types.go
package parser

// ImportKind is the syntactic form an import statement was written in.
type ImportKind string

const (
	ImportStatic     ImportKind = "static"      // import x from 'm', import {a} from 'm'
	ImportSideEffect ImportKind = "side_effect" // import 'm'
	ImportReExport   ImportKind = "re_export"   // export {a} from 'm', export * from 'm'
	ImportRequire    ImportKind = "require"     // require('m')
	ImportDynamic    ImportKind = "dynamic"     // import('m')
)

// ImportStatement is one import token found in a source file.
type ImportStatement struct {
	File          string     `json:"file"`
	Line          int        `json:"line"`    // 1-based
	EndLine       int        `json:"endLine"` // 1-based, inclusive
	Module        string     `json:"module"`
	ImportedNames []string   `json:"importedNames"` // local bindings introduced by the statement
	Kind          ImportKind `json:"kind"`
	TypeOnly      bool       `json:"typeOnly"`
	// Standalone is true when nothing but the statement occupies its lines.
	Standalone bool `json:"standalone"`
	// TopLevel is true when the statement sits directly in the module body.
	// Imports scoped to a function or block are never removed by the fixer.
	TopLevel bool `json:"topLevel"`
}

// Binds reports whether the statement introduces local names that could go unused.
func (s ImportStatement) Binds() bool {
	switch s.Kind {
	case ImportStatic, ImportRequire:
		return len(s.ImportedNames) > 0
	}
	return false
}

// File is the parse-stage output for one source file.
type File struct {
	Path     string
	Language Language
	Content  []byte
	Imports  []ImportStatement
}

// Language identifies which grammar parses a file.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)
