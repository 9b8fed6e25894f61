package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DatasetID is the stable, globally unique identifier of a dataset.
// Convention: "<source-identifier>.<source-local-id>".
type DatasetID string

var reNonIDSafe = regexp.MustCompile(`[^a-z0-9-]+`)

// EncodeSourceName collapses non-ID-safe characters of a source name
// (a domain, an URL fragment) into a single dash.
func EncodeSourceName(name string) string {
	return reNonIDSafe.ReplaceAllString(strings.ToLower(name), "-")
}

// NewDatasetID builds a DatasetID from a source identifier and the
// source-local id of the dataset.
func NewDatasetID(sourceIdentifier, localID string) DatasetID {
	return DatasetID(sourceIdentifier + "." + localID)
}

// String returns the string representation
func (id DatasetID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id DatasetID) IsEmpty() bool {
	return id == ""
}

// ParseDatasetID parses a string into a DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// NewConsumerTag returns a unique tag for a broker consumer or a scoped
// temporary resource.
func NewConsumerTag(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
