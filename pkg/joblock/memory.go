/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package joblock

import (
	"context"
	"sync"
)

// MemoryStore keeps locks in process. It serves single node deployments
// and tests.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: make(map[string]string)}
}

func (s *MemoryStore) TryAcquire(_ context.Context, name, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[name]; held {
		return false, nil
	}

	s.locks[name] = jobID

	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := false

	for name, holder := range s.locks {
		if holder == jobID {
			delete(s.locks, name)

			released = true
		}
	}

	return released, nil
}

func (s *MemoryStore) ClearAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.locks))
	s.locks = make(map[string]string)

	return n, nil
}

// Holder returns the job holding name, or "".
func (s *MemoryStore) Holder(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.locks[name]
}
