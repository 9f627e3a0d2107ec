package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
// Codes are prefixed by the module they belong to (COMMON, CHEM, GRAPH, MERGE)
// so that metrics and log queries can aggregate by subsystem.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "COMMON_000"

	CodeInternal           ErrorCode = "COMMON_001"
	CodeInvalidParam       ErrorCode = "COMMON_002"
	CodeNotFound           ErrorCode = "COMMON_003"
	CodeServiceUnavailable ErrorCode = "COMMON_004"
	CodeTimeout            ErrorCode = "COMMON_005"
	CodeSerialization      ErrorCode = "COMMON_006"
	CodeDatabaseError      ErrorCode = "COMMON_007"
	CodeCacheError         ErrorCode = "COMMON_008"
	CodeStorageError       ErrorCode = "COMMON_009"
	CodeMessagingError     ErrorCode = "COMMON_010"
)

// Cheminformatics error codes.
const (
	CodeInvalidSMILES      ErrorCode = "CHEM_001"
	CodeInvalidMolFile     ErrorCode = "CHEM_002"
	CodeInvalidPDBFile     ErrorCode = "CHEM_003"
	CodeNoConformer        ErrorCode = "CHEM_004"
	CodeSubstructNoMatch   ErrorCode = "CHEM_005"
	CodeAtomIndexOutOfRange ErrorCode = "CHEM_006"
)

// Fragment-network / graph error codes.
const (
	CodeGraphUnavailable ErrorCode = "GRAPH_001"
	CodeGraphQueryFailed ErrorCode = "GRAPH_002"
	CodeFragmentNotFound ErrorCode = "GRAPH_003"
	CodeMalformedLabel   ErrorCode = "GRAPH_004"
)

// Merge / filter pipeline error codes.
const (
	CodeInvalidSynthon    ErrorCode = "MERGE_001"
	CodeEmbeddingFailed   ErrorCode = "MERGE_002"
	CodeEnergyEvalFailed  ErrorCode = "MERGE_003"
	CodeStageFailed       ErrorCode = "MERGE_004"
	CodePlacementHandoff  ErrorCode = "MERGE_005"
	CodeArtifactWrite     ErrorCode = "MERGE_006"
)

// codeMessages maps ErrorCodes to default human-readable messages.
var codeMessages = map[ErrorCode]string{
	CodeInternal:           "internal error",
	CodeInvalidParam:       "invalid parameter",
	CodeNotFound:           "resource not found",
	CodeServiceUnavailable: "service unavailable",
	CodeTimeout:            "operation timed out",
	CodeSerialization:      "serialization failed",
	CodeDatabaseError:      "database error",
	CodeCacheError:         "cache error",
	CodeStorageError:       "object storage error",
	CodeMessagingError:     "message broker error",

	CodeInvalidSMILES:       "invalid SMILES",
	CodeInvalidMolFile:      "invalid mol/SDF file",
	CodeInvalidPDBFile:      "invalid PDB file",
	CodeNoConformer:         "molecule has no 3D conformer",
	CodeSubstructNoMatch:    "substructure has no match",
	CodeAtomIndexOutOfRange: "atom index out of range",

	CodeGraphUnavailable: "fragment network unavailable",
	CodeGraphQueryFailed: "fragment network query failed",
	CodeFragmentNotFound: "fragment not present in network",
	CodeMalformedLabel:   "malformed edge label",

	CodeInvalidSynthon:   "invalid synthon",
	CodeEmbeddingFailed:  "constrained embedding failed",
	CodeEnergyEvalFailed: "force-field energy evaluation failed",
	CodeStageFailed:      "filter stage failed",
	CodePlacementHandoff: "placement handoff failed",
	CodeArtifactWrite:    "failed to write result artifact",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode
// ("COMMON", "CHEM", "GRAPH", "MERGE").
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
