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

// AnyOrderedMap 是 OrderedMap 的类型无关视图，
// 供需要按插入顺序遍历任意键值对的调用方（例如序列化层）使用。
type AnyOrderedMap interface {
	// Len 返回键值对个数。
	Len() int
	// RangeAny 按插入顺序遍历所有键值对；回调返回 false 时停止遍历。
	RangeAny(f func(key, value any) bool)
}

// OrderedMap 是保持插入顺序的键值映射。
//
// 语义：
//   - Set 对已存在的键只更新值，不改变该键原有的位置；
//   - 遍历顺序严格等于首次插入顺序；
//   - 非并发安全，需要并发访问时由调用方加锁。
type OrderedMap[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

// NewOrderedMap 创建一个空的 OrderedMap。
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		index: make(map[K]int),
	}
}

// Set 写入一个键值对。
// 已存在的键保持原有位置，仅更新值。
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if i, ok := m.index[key]; ok {
		m.vals[i] = value
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, value)
}

// Get 返回键对应的值；第二个返回值表示键是否存在。
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	if i, ok := m.index[key]; ok {
		return m.vals[i], true
	}
	var zero V
	return zero, false
}

// Contain 判断键是否存在。
func (m *OrderedMap[K, V]) Contain(key K) bool {
	_, ok := m.index[key]
	return ok
}

// Delete 删除键值对并保持其余元素的相对顺序。
// 键不存在时忽略。
func (m *OrderedMap[K, V]) Delete(key K) {
	i, ok := m.index[key]
	if !ok {
		return
	}
	delete(m.index, key)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
}

// Len 返回键值对个数。
func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Keys 按插入顺序返回所有键。
// 返回的切片为副本，调用方可自由修改。
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Range 按插入顺序遍历所有键值对；回调返回 false 时停止遍历。
func (m *OrderedMap[K, V]) Range(f func(key K, value V) bool) {
	for i := range m.keys {
		if !f(m.keys[i], m.vals[i]) {
			return
		}
	}
}

// RangeAny 实现 AnyOrderedMap。
func (m *OrderedMap[K, V]) RangeAny(f func(key, value any) bool) {
	for i := range m.keys {
		if !f(m.keys[i], m.vals[i]) {
			return
		}
	}
}
