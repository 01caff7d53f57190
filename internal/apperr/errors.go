package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Kind identifies which rule or boundary produced a diagnosis.
type Kind int

const (
	KindUnexpected Kind = iota

	// Upload boundary, checked before the file reaches the validator.
	KindNoFileProvided
	KindNoFileSelected
	KindInvalidFileType

	// Validator rule chain, in evaluation order.
	KindFileAccess
	KindEncoding
	KindFormatMalformed
	KindStructurallyEmpty
	KindMissingColumns
	KindNoDataRows
	KindMissingNames
	KindInvalidNameType
	KindMissingWeights
	KindNonNumericWeights
	KindNegativeWeight
	KindWeightOverOne
	KindWeightSumOutOfTolerance

	// Calculator
	KindPriceNotFound
)

var kindNames = map[Kind]string{
	KindUnexpected:              "unexpected",
	KindNoFileProvided:          "no_file_provided",
	KindNoFileSelected:          "no_file_selected",
	KindInvalidFileType:         "invalid_file_type",
	KindFileAccess:              "file_access",
	KindEncoding:                "encoding",
	KindFormatMalformed:         "format_malformed",
	KindStructurallyEmpty:       "structurally_empty",
	KindMissingColumns:          "missing_columns",
	KindNoDataRows:              "no_data_rows",
	KindMissingNames:            "missing_names",
	KindInvalidNameType:         "invalid_name_type",
	KindMissingWeights:          "missing_weights",
	KindNonNumericWeights:       "non_numeric_weights",
	KindNegativeWeight:          "negative_weight",
	KindWeightOverOne:           "weight_over_one",
	KindWeightSumOutOfTolerance: "weight_sum_out_of_tolerance",
	KindPriceNotFound:           "price_not_found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Application error codes returned to clients.
const (
	CodeNoFileProvided  = 1001
	CodeNoFileSelected  = 1002
	CodeInvalidFileType = 1003
	CodeFileProcessing  = 1004
	CodeFileNotFound    = 2001
	CodePriceNotFound   = 3001
	CodeUnexpected      = 5000
)

// Caps on how many offending rows or values a diagnosis cites.
const (
	MaxCitedRows   = 5
	MaxCitedValues = 3
)

const fileProcessingMessage = "There was a problem processing the file."

// Error is the single diagnosis type surfaced by the upload pipeline.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Status  int
	Detail  string

	err error
}

// Error returns the most specific text available.
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// LogMessage formats the diagnosis for the application log.
func (e *Error) LogMessage() string {
	msg := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " | Details: " + e.Detail
	}
	return msg
}

// ServerError reports whether the failure was caused by the system rather than the client.
func (e *Error) ServerError() bool { return e.Status >= fiber.StatusInternalServerError }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries a diagnosis of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

func fileProcessing(kind Kind, detail string) *Error {
	return &Error{
		Kind:    kind,
		Message: fileProcessingMessage,
		Code:    CodeFileProcessing,
		Status:  fiber.StatusBadRequest,
		Detail:  detail,
	}
}

func FileNotFound(cause error) *Error {
	return fileAccess("ETF file not found", cause)
}

func FileUnreadable(cause error) *Error {
	return fileAccess("ETF file could not be read", cause)
}

func fileAccess(detail string, cause error) *Error {
	return &Error{
		Kind:    KindFileAccess,
		Message: "There was a problem. Please inform the service maintainer",
		Code:    CodeFileNotFound,
		Status:  fiber.StatusBadRequest,
		Detail:  detail,
		err:     cause,
	}
}

func Encoding() *Error {
	return fileProcessing(KindEncoding,
		"The file cannot be read. Please ensure it's a valid text file encoded in UTF-8.")
}

func FormatMalformed(details string) *Error {
	return fileProcessing(KindFormatMalformed, fmt.Sprintf(
		"The file is not a valid CSV format. Please check that it has proper comma-separated values. Details: %s", details))
}

func StructurallyEmpty() *Error {
	return fileProcessing(KindStructurallyEmpty,
		"The CSV file appears to be empty. Please provide a file with ETF constituent data.")
}

func MissingColumns(missing, found []string) *Error {
	return fileProcessing(KindMissingColumns, fmt.Sprintf(
		"Your CSV is missing required columns: %s. Found columns: %s. Please ensure your CSV has 'name' and 'weight' columns.",
		strings.Join(missing, ", "), strings.Join(found, ", ")))
}

func NoDataRows() *Error {
	return fileProcessing(KindNoDataRows,
		"The CSV file has headers but no data rows. Please add ETF constituent information.")
}

// MissingNames takes zero-based data row indexes.
func MissingNames(rows []int) *Error {
	return fileProcessing(KindMissingNames, fmt.Sprintf(
		"Some stock names are missing. Please check rows: %s. Every ETF constituent must have a name.",
		rowNumbers(rows)))
}

func InvalidNameType() *Error {
	return fileProcessing(KindInvalidNameType,
		"All stock names must be text values (e.g., 'A', 'AAPL', 'MSFT'). Please check your 'name' column.")
}

// MissingWeights takes zero-based data row indexes.
func MissingWeights(rows []int) *Error {
	return fileProcessing(KindMissingWeights, fmt.Sprintf(
		"Some weights are missing. Please check rows: %s. Every constituent must have a weight value.",
		rowNumbers(rows)))
}

func NonNumericWeights(values []string) *Error {
	return fileProcessing(KindNonNumericWeights, fmt.Sprintf(
		"Weight values must be numbers (e.g., 0.15, 0.25). Found invalid values: %s. Please use decimal format.",
		strings.Join(capped(values, MaxCitedValues), ", ")))
}

func NegativeWeights(names []string) *Error {
	return fileProcessing(KindNegativeWeight, fmt.Sprintf(
		"Weight values cannot be negative. Found negative weights for: %s. Weights must be between 0 and 1.",
		strings.Join(capped(names, MaxCitedValues), ", ")))
}

func WeightsExceedOne(names []string) *Error {
	return fileProcessing(KindWeightOverOne, fmt.Sprintf(
		"Weight values cannot exceed 1.0. Found weights greater than 1 for: %s. Please use decimal format (e.g., 0.25 for 25%%).",
		strings.Join(capped(names, MaxCitedValues), ", ")))
}

// WeightSum takes the sum pre-formatted to 4 decimals and its percentage to 2 decimals.
func WeightSum(sum, percentage string) *Error {
	return fileProcessing(KindWeightSumOutOfTolerance, fmt.Sprintf(
		"The total weights sum to %s (%s%%), but should sum to approximately 1.0 (100%%). Please verify your weight allocations.",
		sum, percentage))
}

func PriceNotFound(stock string) *Error {
	return &Error{
		Kind:    KindPriceNotFound,
		Message: fmt.Sprintf("Price data for stock '%s' not found. Please inform the service maintainer.", stock),
		Code:    CodePriceNotFound,
		Status:  fiber.StatusBadRequest,
	}
}

// Unexpected wraps an unanticipated failure without leaking anything beyond its text.
func Unexpected(err error) *Error {
	details := "unknown error"
	if err != nil {
		details = err.Error()
	}
	return &Error{
		Kind:    KindUnexpected,
		Message: fmt.Sprintf("An unexpected error occurred while processing your file. Please try again or contact support. Details: %s", details),
		Code:    CodeUnexpected,
		Status:  fiber.StatusInternalServerError,
		Detail:  details,
		err:     err,
	}
}

func NoFileProvided() *Error {
	return &Error{
		Kind:    KindNoFileProvided,
		Message: "No file provided. Please select a file to upload.",
		Code:    CodeNoFileProvided,
		Status:  fiber.StatusBadRequest,
	}
}

func NoFileSelected() *Error {
	return &Error{
		Kind:    KindNoFileSelected,
		Message: "No file selected. Please choose a CSV file to upload.",
		Code:    CodeNoFileSelected,
		Status:  fiber.StatusBadRequest,
	}
}

func InvalidFileType(filename string) *Error {
	return &Error{
		Kind:    KindInvalidFileType,
		Message: fmt.Sprintf("Invalid file type. Expected a CSV file but received '%s'. Please upload a .csv file.", filename),
		Code:    CodeInvalidFileType,
		Status:  fiber.StatusBadRequest,
	}
}

// rowNumbers renders the first MaxCitedRows data rows as 1-based file line numbers,
// counting the header as row 1.
func rowNumbers(rows []int) string {
	out := make([]string, 0, MaxCitedRows)
	for i, r := range rows {
		if i == MaxCitedRows {
			break
		}
		out = append(out, fmt.Sprint(r+2))
	}
	return strings.Join(out, ", ")
}

func capped(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
