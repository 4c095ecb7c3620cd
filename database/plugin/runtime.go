// Copyright 2026 Blink Labs Software
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

package plugin

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runtimeLogger       *slog.Logger
	runtimePromRegistry prometheus.Registerer
	runtimeMutex        sync.RWMutex
)

// SetRuntime sets the logger and metrics registry handed to plugin instances
// created after this call. Either may be nil.
func SetRuntime(logger *slog.Logger, promRegistry prometheus.Registerer) {
	runtimeMutex.Lock()
	defer runtimeMutex.Unlock()
	runtimeLogger = logger
	runtimePromRegistry = promRegistry
}

// Runtime returns the values set by SetRuntime
func Runtime() (*slog.Logger, prometheus.Registerer) {
	runtimeMutex.RLock()
	defer runtimeMutex.RUnlock()
	return runtimeLogger, runtimePromRegistry
}
