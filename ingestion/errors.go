// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import "errors"

var (
	// ErrInvalidPoolSize indicates the worker pool size is not positive.
	ErrInvalidPoolSize = errors.New("pool size must be greater than 0")

	// ErrUnsupportedFormat indicates a corpus file with an extension the
	// loader does not understand.
	ErrUnsupportedFormat = errors.New("unsupported transcript format")

	// ErrMissingTextField indicates a JSON transcript without a "text" field.
	ErrMissingTextField = errors.New("transcript JSON missing text field")

	// ErrEmptyVector indicates the embedder returned a zero-length vector.
	ErrEmptyVector = errors.New("embedder returned an empty vector")
)
