/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"

	"riversim/internal/simulation"
)

// StepHook returns a driver step callback that reports every n-th step
// (every step when n <= 0). It never fails the step.
func (c *Client) StepHook(n int) func(ctx context.Context, info simulation.StepInfo) error {
	return func(_ context.Context, info simulation.StepInfo) error {
		if n > 1 && info.Step%n != 0 {
			return nil
		}
		c.Event("step", map[string]any{
			"phase":  info.Phase,
			"step":   info.Step,
			"tips":   info.Tips,
			"max_a1": info.MaxA1,
			"dof":    info.DOF,
		})
		return nil
	}
}

// RunFinished reports the outcome of a simulation run. Only the error
// class is sent, never its message.
func (c *Client) RunFinished(simType string, steps, branches int, stopped bool, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case stopped:
		outcome = "stopped"
	}
	c.Event("run_finished", map[string]any{
		"sim_type": simType,
		"steps":    steps,
		"branches": branches,
		"outcome":  outcome,
	})
}

func StepHook(n int) func(ctx context.Context, info simulation.StepInfo) error {
	return Default().StepHook(n)
}

func RunFinished(simType string, steps, branches int, stopped bool, err error) {
	Default().RunFinished(simType, steps, branches, stopped, err)
}
