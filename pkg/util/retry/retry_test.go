// Copyright 2021 Zilliz
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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttempts(t *testing.T) {
	ctx := context.Background()

	n := 0
	err := Do(ctx, func() error {
		n++
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	}, Attempts(5), Sleep(time.Millisecond))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n = 0
	err = Do(ctx, func() error {
		n++
		return errors.New("always")
	}, Attempts(3), Sleep(time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, 3, n)
}

func TestUnrecoverable(t *testing.T) {
	ctx := context.Background()

	n := 0
	err := Do(ctx, func() error {
		n++
		return Unrecoverable(errors.New("fatal"))
	}, Attempts(5), Sleep(time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	n := 0
	err := Do(ctx, func() error {
		n++
		cancel()
		return errors.New("transient")
	}, Attempts(10), Sleep(time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	n := 0
	err := Handle(ctx, func() (bool, error) {
		n++
		if n < 2 {
			return true, errors.New("transient")
		}
		return false, nil
	}, Attempts(5), Sleep(time.Millisecond))
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	err = Handle(ctx, func() (bool, error) {
		return false, errors.New("fatal")
	}, Attempts(5), Sleep(time.Millisecond))
	assert.Error(t, err)
}
