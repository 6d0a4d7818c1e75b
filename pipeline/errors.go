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

package pipeline

import "errors"

var (
	// ErrReleased indicates the processor's worker pool has been released.
	ErrReleased = errors.New("processor has been released")

	// ErrNilPrior indicates an incremental run was requested without the
	// prior corpus or processed registry it merges against.
	ErrNilPrior = errors.New("incremental run requires prior corpus and registry")
)
