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

package typeutil

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type OrderedMapSuite struct {
	suite.Suite
}

func (s *OrderedMapSuite) TestInsertionOrder() {
	m := NewOrderedMap[string, int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)

	s.Equal([]string{"c", "a", "b"}, m.Keys())
	s.Equal(3, m.Len())
}

func (s *OrderedMapSuite) TestUpdateKeepsPosition() {
	m := NewOrderedMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10)

	s.Equal([]string{"a", "b"}, m.Keys())
	v, ok := m.Get("a")
	s.True(ok)
	s.Equal(10, v)
}

func (s *OrderedMapSuite) TestDelete() {
	m := NewOrderedMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	m.Delete("b")
	s.Equal([]string{"a", "c"}, m.Keys())
	s.False(m.Contain("b"))

	// 删除后新写入追加到末尾。
	m.Set("b", 20)
	s.Equal([]string{"a", "c", "b"}, m.Keys())
}

func (s *OrderedMapSuite) TestRange() {
	m := NewOrderedMap[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)

	var keys []string
	m.Range(func(key string, value int) bool {
		keys = append(keys, key)
		return true
	})
	s.Equal([]string{"x", "y"}, keys)

	var count int
	m.RangeAny(func(key, value any) bool {
		count++
		return false
	})
	s.Equal(1, count)
}

func TestOrderedMap(t *testing.T) {
	suite.Run(t, new(OrderedMapSuite))
}
