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
	"fmt"
	"sync"

	ants "github.com/panjf2000/ants/v2"
)

// Pool 为带泛型返回值的协程池封装。
// 底层基于 ants 协程池实现，Submit 返回的 Future 可等待任务结果。
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 创建一个容量为 cap 的协程池。
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		// ants 仅在容量或选项非法时报错
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// Submit 提交任务到协程池并返回对应的 Future。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer close(future.ch)
		if pool.opt.preHandler != nil {
			pool.opt.preHandler()
		}
		res, err := method()
		if err != nil {
			future.err = err
			return
		}
		future.value = res
	})
	if err != nil {
		future.err = err
		close(future.ch)
	}

	return future
}

// Cap 返回协程池容量。
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Running 返回当前正在执行任务的 worker 数量。
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Free 返回当前空闲的 worker 数量。
func (pool *Pool[T]) Free() int {
	return pool.inner.Free()
}

// Release 释放协程池资源。
func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

// Resize 调整协程池容量，仅在非预分配模式下有效。
func (pool *Pool[T]) Resize(size int) error {
	if pool.opt.preAlloc {
		return fmt.Errorf("conc: cannot resize pre-alloc pool")
	}
	if size <= 0 {
		return fmt.Errorf("conc: positive size required, size specified %d", size)
	}
	pool.inner.Tune(size)
	return nil
}

var (
	commonPool     *Pool[any]
	commonPoolOnce sync.Once
)

// CommonPool 返回全局共享的协程池，容量为默认值。
func CommonPool() *Pool[any] {
	commonPoolOnce.Do(func() {
		commonPool = NewPool[any](256, WithConcealPanic(true))
	})
	return commonPool
}
