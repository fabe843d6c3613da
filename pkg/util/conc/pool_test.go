// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolSubmit(t *testing.T) {
	pool := NewPool[int](4)
	defer pool.Release()

	future := pool.Submit(func() (int, error) {
		return 42, nil
	})
	v, err := future.Await()
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, future.OK())

	future = pool.Submit(func() (int, error) {
		return 0, errors.New("boom")
	})
	_, err = future.Await()
	assert.Error(t, err)
	assert.False(t, future.OK())
}

func TestPoolAwaitAll(t *testing.T) {
	pool := NewPool[int](4)
	defer pool.Release()

	futures := make([]*Future[int], 0, 8)
	for i := 0; i < 8; i++ {
		i := i
		futures = append(futures, pool.Submit(func() (int, error) {
			return i, nil
		}))
	}
	assert.NoError(t, AwaitAll(futures...))
}

func TestPoolResize(t *testing.T) {
	pool := NewPool[any](4)
	defer pool.Release()

	assert.Error(t, pool.Resize(0))
	assert.NoError(t, pool.Resize(8))
	assert.Equal(t, 8, pool.Cap())

	prealloc := NewPool[any](4, WithPreAlloc(true))
	defer prealloc.Release()
	assert.Error(t, prealloc.Resize(8))
}
