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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// autodoneNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	autodoneNamespace = "autodone"

	// 以下为当前使用的通用标签名。
	tagLabelName       = "tag"
	statusLabelName    = "status"
	reasonLabelName    = "reason"
	interfaceLabelName = "interface"
	commandLabelName   = "command"

	// 序列化/反序列化结果标签取值。
	StatusSuccess = "success"
	StatusFail    = "fail"
)

var (
	// buckets 为请求耗时直方图的桶划分，单位为毫秒。
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// sizeBuckets 为数据大小的桶划分，单位为字节。
	sizeBuckets = []float64{128, 1024, 8192, 65536, 524288, 1048576, 4194304, 16777216, 67108864} // 单位：字节

	// SerializeTotal 按标签与结果统计序列化次数。
	SerializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: autodoneNamespace,
			Name:      "serialize_total",
			Help:      "number of values serialized, by portable tag and status",
		}, []string{tagLabelName, statusLabelName})

	// DeserializeTotal 按标签与结果统计反序列化次数。
	DeserializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: autodoneNamespace,
			Name:      "deserialize_total",
			Help:      "number of values deserialized, by portable tag and status",
		}, []string{tagLabelName, statusLabelName})

	// DeserializeRejectedTotal 按拒绝原因统计被安全策略拒绝的反序列化次数。
	DeserializeRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: autodoneNamespace,
			Name:      "deserialize_rejected_total",
			Help:      "number of deserializations rejected, by reason",
		}, []string{reasonLabelName})

	// SessionSaveBytes 统计会话快照写盘时的载荷大小分布。
	SessionSaveBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: autodoneNamespace,
			Name:      "session_save_bytes",
			Help:      "size in bytes of persisted session snapshots",
			Buckets:   sizeBuckets,
		})

	// SessionActive 统计当前未关闭的会话数量。
	SessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: autodoneNamespace,
			Name:      "session_active",
			Help:      "number of open sessions",
		})

	// CommandLatency 按 interface/command 统计命令执行耗时。
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: autodoneNamespace,
			Name:      "command_latency_milliseconds",
			Help:      "latency of command execution in milliseconds",
			Buckets:   buckets,
		}, []string{interfaceLabelName, commandLabelName})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(SerializeTotal)
	r.MustRegister(DeserializeTotal)
	r.MustRegister(DeserializeRejectedTotal)
	r.MustRegister(SessionSaveBytes)
	r.MustRegister(SessionActive)
	r.MustRegister(CommandLatency)
	metricRegisterer = r
}
