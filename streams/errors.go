package streams

import "errors"

var (
	ErrDuplicateInput    = errors.New("an entry with this input_uri already exists")
	ErrDuplicateOutput   = errors.New("an entry with this output_uri already exists")
	ErrDuplicatePipeline = errors.New("a different entry is already bound to this pipeline_id")
	ErrNotFound          = errors.New("stream entry not found")
)
