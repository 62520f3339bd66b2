package main

import (
	"encoding/json"
	"testing"
)

func TestWorkloadCommand(t *testing.T) {
	tests := []struct {
		name        string
		zero        string
		preset      string
		verify      bool
		wantJSON    bool
		wantContain []string
	}{
		{
			name:        "bump",
			zero:        "bump",
			preset:      "default",
			wantContain: []string{"Workload: 2,000 ops, seed 3", "alloc calls:", "class"},
		},
		{
			name:        "routed verified",
			zero:        "routed",
			preset:      "default",
			verify:      true,
			wantContain: []string{"Workload: 2,000 ops"},
		},
		{
			name:        "wide json",
			zero:        "bump",
			preset:      "wide",
			wantJSON:    true,
			wantContain: []string{`"ops": 2000`, `"seed": 3`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			zeroMode = tt.zero
			preset = tt.preset
			jsonOut = tt.wantJSON
			workloadOps = 2000
			workloadSeed = 3
			workloadMaxSize = 1024
			workloadVerify = tt.verify

			output, err := captureOutput(t, func() error {
				return runWorkload(nil)
			})
			if err != nil {
				t.Fatalf("runWorkload() error = %v\n%s", err, output)
			}
			if tt.wantJSON {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

// TestWorkloadDeterministic checks that a seed reproduces the same counters.
func TestWorkloadDeterministic(t *testing.T) {
	run := func() WorkloadResult {
		resetFlags(t)
		jsonOut = true
		workloadOps = 500
		workloadSeed = 42
		workloadMaxSize = 700
		workloadVerify = false

		output, err := captureOutput(t, func() error { return runWorkload(nil) })
		if err != nil {
			t.Fatal(err)
		}
		var res WorkloadResult
		if err := json.Unmarshal([]byte(output), &res); err != nil {
			t.Fatal(err)
		}
		return res
	}

	a, b := run(), run()
	if a.Live != b.Live || a.Stats.GrowCalls != b.Stats.GrowCalls || a.Stats.LargeAllocs != b.Stats.LargeAllocs {
		t.Errorf("same seed diverged: %+v vs %+v", a, b)
	}
}
