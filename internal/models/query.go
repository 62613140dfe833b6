package models

import "fmt"

// SimilarRequest is the body of a raw-vector similarity query.
// Count follows the same policy as the count query parameter; zero means the default.
type SimilarRequest struct {
	Vector []float32 `json:"vector"`
	Count  int       `json:"count,omitempty"`
}

// Validate ensures the request carries a vector.
func (r *SimilarRequest) Validate() error {
	if len(r.Vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}
	return nil
}
