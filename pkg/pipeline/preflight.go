/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pipeline

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// memoryFloor is the working set graph optimization wants headroom for.
const memoryFloor = 2 * humanize.GiByte

// logHostInfo records host capacity before the first stage. Failures only
// cost the log line, the run proceeds either way.
func logHostInfo(ctx context.Context) {
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		logrus.Debugf("run: host cpu count unavailable: %v", err)
		cpus = 0
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		logrus.Debugf("run: host memory unavailable: %v", err)
		return
	}

	logrus.Infof("run: host [cpus: %d, memory: %s available of %s]",
		cpus, humanize.IBytes(vm.Available), humanize.IBytes(vm.Total))

	if vm.Available < memoryFloor {
		logrus.Warnf("run: available memory %s is below %s, graph optimization may thrash",
			humanize.IBytes(vm.Available), humanize.IBytes(uint64(memoryFloor)))
	}
}
