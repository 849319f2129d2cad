package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Module description (input) errors.
	InputInfo            Code = 1000
	InputDecode          Code = 1001
	InputUnknownNodeKind Code = 1002
	InputUnresolvedName  Code = 1003
	InputBadType         Code = 1004
	InputDuplicateName   Code = 1005

	// Type inference.
	TypeCheckInfo            Code = 3000
	TypeNotFound             Code = 3001
	TypeMismatch             Code = 3002
	TypeUnification          Code = 3003
	TypeIntegrity            Code = 3004
	TypeInvalid              Code = 3005
	TypeDuplicateRoot        Code = 3006
	TypeWarnTruncatingCast   Code = 3100
	TypeWarnUnusedParametric Code = 3101

	// IO / project.
	IOLoadFileError      Code = 4001
	ProjImportCycle      Code = 5001
	ProjMissingModule    Code = 5002
	ProjDuplicateModule  Code = 5003
	ProjSelfImport       Code = 5004
	ProjDependencyFailed Code = 5005
)

var codeDescription = map[Code]string{
	UnknownCode:              "Unknown error",
	InputInfo:                "Module description information",
	InputDecode:              "Malformed module description",
	InputUnknownNodeKind:     "Unknown node kind",
	InputUnresolvedName:      "Unresolved name",
	InputBadType:             "Malformed type annotation",
	InputDuplicateName:       "Duplicate definition",
	TypeCheckInfo:            "Type information",
	TypeNotFound:             "Missing type information",
	TypeMismatch:             "Type mismatch",
	TypeUnification:          "Conflicting type constraints",
	TypeIntegrity:            "Inconsistent invocation data",
	TypeInvalid:              "Invalid program",
	TypeDuplicateRoot:        "Duplicate root type information",
	TypeWarnTruncatingCast:   "Cast truncates constant value",
	TypeWarnUnusedParametric: "Parametric binding is never used",
	IOLoadFileError:          "I/O error",
	ProjImportCycle:          "Import cycle",
	ProjMissingModule:        "Imported module not found",
	ProjDuplicateModule:      "Duplicate module name",
	ProjSelfImport:           "Module imports itself",
	ProjDependencyFailed:     "Imported module has errors",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("INP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
