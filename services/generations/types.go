// Package generations owns the generation request lifecycle and the stored
// manifests. It provides the state machine mutations used by the worker and
// the query surface used by the REST API.
package generations

import (
	"encoding/json"
	"errors"
	"time"

	"sbomd/pkg/genconfig"
)

// RequestType classifies what a generation request manifests.
type RequestType string

const (
	RequestTypeBuild          RequestType = "BUILD"
	RequestTypeContainerImage RequestType = "CONTAINERIMAGE"
	RequestTypeOperation      RequestType = "OPERATION"
	RequestTypeAnalysis       RequestType = "ANALYSIS"
	RequestTypeBrewRPM        RequestType = "BREW_RPM"
)

// RequestTypeFor maps a configuration variant to its request type.
func RequestTypeFor(t genconfig.Type) RequestType {
	switch t {
	case genconfig.TypePncBuild:
		return RequestTypeBuild
	case genconfig.TypeSyftImage:
		return RequestTypeContainerImage
	case genconfig.TypeOperation:
		return RequestTypeOperation
	case genconfig.TypeAnalysis:
		return RequestTypeAnalysis
	case genconfig.TypeBrewRPM:
		return RequestTypeBrewRPM
	default:
		return RequestType("")
	}
}

// Status is the lifecycle state of a generation request.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
	StatusFailed     Status = "FAILED"
	// StatusNoOp is the immediate terminal state for empty configurations.
	StatusNoOp Status = "NO_OP"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusNoOp:
		return true
	default:
		return false
	}
}

// Result is the outcome recorded when a request reaches a terminal state.
// The empty value means the outcome is not determined yet.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFailure Result = "FAILURE"
)

var (
	// ErrNotFound is returned when the referenced request or manifest does
	// not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrStaleState is returned when a transition conflicts with a terminal
	// state already recorded for the request.
	ErrStaleState = errors.New("request state is stale")
)

// GenerationRequest is the external representation of a request.
type GenerationRequest struct {
	ID           string          `json:"id"`
	Identifier   string          `json:"identifier"`
	Type         RequestType     `json:"type"`
	Status       Status          `json:"status"`
	Result       Result          `json:"result,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	EnvConfig    json.RawMessage `json:"envConfig,omitempty"`
	CreationTime time.Time       `json:"creationTime"`
}

// Sbom is the external representation of one stored manifest.
type Sbom struct {
	ID                  string          `json:"id"`
	Identifier          string          `json:"identifier"`
	RootPurl            string          `json:"rootPurl,omitempty"`
	Bom                 json.RawMessage `json:"sbom,omitempty"`
	CreationTime        time.Time       `json:"creationTime"`
	GenerationRequestID string          `json:"generationRequestId"`
}

// ArchiveKey is the object key under which a manifest archive is stored.
func ArchiveKey(sbomID string) string {
	return "sboms/" + sbomID + ".json.zst"
}

// StatusChangeEvent is published on every request status mutation.
type StatusChangeEvent struct {
	RequestID  string      `json:"request_id"`
	Identifier string      `json:"identifier"`
	Type       RequestType `json:"type"`
	Status     Status      `json:"status"`
	Result     Result      `json:"result,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
