// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/server/execution"
	"github.com/agentwire/agentwire/server/task"
)

// diceSpec matches dice notation like "d20", "2d6" or "3 d 8".
var diceSpec = regexp.MustCompile(`(?i)\b(\d*)\s*d\s*(\d+)\b`)

// roll is one parsed dice request.
type roll struct {
	count int
	sides int
}

// parseRoll extracts the first dice spec from free-form text.
func parseRoll(text string) (roll, bool) {
	m := diceSpec.FindStringSubmatch(text)
	if m == nil {
		return roll{}, false
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count < 1 || count > 100 || sides < 2 {
		return roll{}, false
	}
	return roll{count: count, sides: sides}, true
}

// DiceExecutor rolls dice described in the user's message. A message
// with no dice notation pauses the task for clarification, and the
// follow-up message resumes it.
type DiceExecutor struct {
	// rand returns a die face in [1, sides]. Tests replace it.
	rand func(sides int) int
}

// NewDiceExecutor creates an executor rolling real pseudo-random dice.
func NewDiceExecutor() *DiceExecutor {
	return &DiceExecutor{
		rand: func(sides int) int { return rand.IntN(sides) + 1 },
	}
}

var _ execution.AgentExecutor = (*DiceExecutor)(nil)

// Execute implements execution.AgentExecutor.
func (e *DiceExecutor) Execute(ctx context.Context, rc *execution.RequestContext, updater *task.Updater) error {
	if err := updater.StartWork(ctx); err != nil {
		return err
	}

	r, ok := parseRoll(rc.UserText())
	if !ok {
		return updater.RequireInput(ctx, agentwire.NewAgentMessage(
			"tell me what to roll, like d20 or 3d6"))
	}

	results := make([]int, r.count)
	total := 0
	for i := range results {
		results[i] = e.rand(r.sides)
		total += results[i]
	}

	artifact := agentwire.NewDataArtifact("roll", map[string]any{
		"notation": fmt.Sprintf("%dd%d", r.count, r.sides),
		"results":  results,
		"total":    total,
	})
	if err := updater.AddArtifact(ctx, artifact, false, true); err != nil {
		return err
	}

	return updater.Complete(ctx, agentwire.NewAgentMessage(describeRoll(r, results, total)))
}

// Cancel implements execution.AgentExecutor. Rolls finish instantly,
// so there is nothing to interrupt.
func (e *DiceExecutor) Cancel(ctx context.Context, rc *execution.RequestContext, updater *task.Updater) error {
	return agentwire.ErrUnsupportedOperation
}

func describeRoll(r roll, results []int, total int) string {
	if r.count == 1 {
		return fmt.Sprintf("rolled a d%d: %d", r.sides, total)
	}
	parts := make([]string, len(results))
	for i, v := range results {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("rolled %dd%d: %s = %d", r.count, r.sides, strings.Join(parts, " + "), total)
}
