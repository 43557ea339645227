package extract

import "fmt"

// ServiceError reports a failed call to the generative capability. It is
// never retried by the extractor; the pipeline drops the reference.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("extract: %s call failed: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
