package utils

import (
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

// MinParallelSize is the amount of work below which GroupWorkParallel runs inline.
var MinParallelSize = 4096

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// GroupWorkFunc processes the half open range [from, to) of the work.
type GroupWorkFunc func(groupNum, from, to int)

// GroupWorkParallel splits totalSize items into contiguous groups and runs
// groupWork on each group concurrently. Every index is covered exactly once and
// groups never overlap, so writers indexing their own output slots need no locking.
// A panic in any group is re-raised in the caller once every group has finished.
func GroupWorkParallel(totalSize int, groupWork GroupWorkFunc) {
	if totalSize <= 0 {
		return
	}
	numGroups := ParallelFactor
	if totalSize < MinParallelSize || numGroups <= 1 {
		groupWork(0, 0, totalSize)
		return
	}
	if numGroups > totalSize {
		numGroups = totalSize
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	var (
		wait      sync.WaitGroup
		panicMu   sync.Mutex
		recovered interface{}
	)
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		groupNumCopy := groupNum
		// Done is not deferred so that a panic is recorded before Wait returns.
		utils.PanicCapturingGoWithCallback(func() {
			from := groupSize * groupNumCopy
			to := from + groupSize
			if groupNumCopy == numGroups-1 {
				to += extra
			}
			groupWork(groupNumCopy, from, to)
			wait.Done()
		}, func(err interface{}) {
			panicMu.Lock()
			if recovered == nil {
				recovered = err
			}
			panicMu.Unlock()
			wait.Done()
		})
	}
	wait.Wait()
	if recovered != nil {
		panic(recovered)
	}
}
