package operator

import (
	"runtime"
	"sync"

	"github.com/rdsim/nsm/reaction"
	"github.com/rdsim/nsm/species"
)

// Snapshot is a point-in-time diagnostic summary: total copy number
// per species and total propensity per compartment. It is computed
// between Integrate calls, never during stepping, so it never
// competes with the NSM core's single-threaded mandate (spec.md §5).
type Snapshot struct {
	SpeciesTotals     map[string]int
	CompartmentTotals []float64
}

// Summarize fans the summary computation for n compartments across
// runtime.GOMAXPROCS(0) goroutines, one slice of compartment indices
// per worker.
func Summarize(specs []*species.Species, listFor func(i int) *reaction.List, n int) Snapshot {
	nprocs := runtime.GOMAXPROCS(0)
	compartmentTotals := make([]float64, n)

	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for i := pp; i < n; i += nprocs {
				compartmentTotals[i] = listFor(i).GetPropensity()
			}
		}(pp)
	}
	wg.Wait()

	speciesTotals := make(map[string]int, len(specs))
	for _, s := range specs {
		total := 0
		for _, c := range s.CopyNumbers {
			total += c
		}
		speciesTotals[s.Name] = total
	}

	return Snapshot{SpeciesTotals: speciesTotals, CompartmentTotals: compartmentTotals}
}
