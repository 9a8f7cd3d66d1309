package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ruleflow/internal/compiler"
	"github.com/roach88/ruleflow/internal/ir"
)

// LoadResult contains the programs loaded from a file or directory.
type LoadResult struct {
	Programs  []*ir.Program
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files read
}

// LoadError represents an error that occurred while loading programs.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPrograms loads every program from a .cue file or a directory of them.
//
// A file may hold a single top-level program or any number of entries
// under program. A directory is loaded as one CUE package, so its files
// must share a package clause.
func LoadPrograms(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program path: %v", err)}
	}

	var value cue.Value
	fileCount := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(cueFiles)

		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
		}
		value = cuecontext.New().BuildInstance(inst)
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		value = cuecontext.New().CompileBytes(data, cue.Filename(path))
	}

	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	result := &LoadResult{CUEValue: value, FileCount: fileCount}

	if value.LookupPath(cue.ParsePath("program")).Exists() {
		progs, err := compiler.CompileAll(value)
		if err != nil {
			return result, convertCompileError(err, "program")
		}
		result.Programs = progs
	} else {
		prog, err := compiler.CompileProgram(value)
		if err != nil {
			return result, convertCompileError(err, "program")
		}
		if prog.Name == "" {
			prog.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		result.Programs = []*ir.Program{prog}
	}

	if len(result.Programs) == 0 {
		return result, &LoadError{Code: ErrCodeGeneric, Message: "no programs found"}
	}
	return result, nil
}

// LoadProgram loads one program. With an empty name the path must hold
// exactly one program.
func LoadProgram(path, name string) (*ir.Program, error) {
	result, err := LoadPrograms(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(result.Programs) != 1 {
			return nil, &LoadError{
				Code:    ErrCodeAmbiguous,
				Message: fmt.Sprintf("%s holds %d programs, choose one with --program", path, len(result.Programs)),
			}
		}
		return result.Programs[0], nil
	}
	for _, p := range result.Programs {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program %q not found in %s", name, path)}
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var notationErr *compiler.NotationError
	if errors.As(err, &notationErr) {
		return &LoadError{Code: compiler.ErrUnknownOperator, Message: notationErr.Error()}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants shared by every command. Program and rule codes
// (E1xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path, program or flow not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // Output write error
	ErrCodeAmbiguous   = "E008" // More than one program and none chosen
	ErrCodeEvolve      = "E009" // Evolution failed
	ErrCodeStore       = "E010" // Trace database error
	ErrCodeQuery       = "E011" // Invalid trace query
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	base := field
	if i := strings.IndexAny(base, "[."); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "init":
		return compiler.ErrProgramNoInit
	case "rules":
		if field == "rules" {
			return compiler.ErrProgramNoRules
		}
		return compiler.ErrInvalidSelector
	case "flag", "flags", "groups":
		return compiler.ErrInvalidFlagValue
	case "steps", "max_steps", "until_inert":
		return compiler.ErrInvalidStepSettings
	case "directives":
		return compiler.ErrInvalidDirective
	default:
		return ErrCodeGeneric
	}
}
