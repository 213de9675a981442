// Command xallocbench exercises each allocator engine over a synthetic
// allocate/free workload and reports how many allocations succeeded,
// were freed, failed and remain live, plus the engine's integrity check
// where it has one, standing in for a *testing.B loop as a standalone,
// flag-driven tool.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"unsafe"

	"github.com/spf13/pflag"

	"github.com/jurgen-kluft/xallocator/alloc"
	"github.com/jurgen-kluft/xallocator/forward"
	"github.com/jurgen-kluft/xallocator/indexed"
	"github.com/jurgen-kluft/xallocator/tlsf"
)

func main() {
	var (
		engine   = pflag.StringP("engine", "e", "tlsf", "engine to exercise: tlsf, forward, indexed, or all")
		regionMB = pflag.IntP("region", "r", 4, "backing region size in MiB")
		ops      = pflag.IntP("ops", "n", 10_000, "number of allocate/free operations to run")
		seed     = pflag.Int64P("seed", "s", 1, "PRNG seed, for reproducible runs")
	)
	pflag.Parse()

	engines := []string{*engine}
	if *engine == "all" {
		engines = []string{"tlsf", "forward", "indexed"}
	}

	for _, name := range engines {
		if err := run(name, *regionMB, *ops, *seed); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func run(engine string, regionMB, ops int, seed int64) error {
	mem := make([]byte, regionMB<<20)
	rng := rand.New(rand.NewSource(seed))

	var a alloc.Allocator
	var checkHeap func() error

	switch engine {
	case "tlsf":
		p, err := tlsf.New(mem)
		if err != nil {
			return err
		}
		a, checkHeap = p, p.CheckHeap
	case "forward":
		a = forward.New(mem)
	case "indexed":
		p, err := indexed.NewOverRegion(mem, 64)
		if err != nil {
			return err
		}
		a, checkHeap = p, p.Check
	default:
		return fmt.Errorf("unknown engine %q", engine)
	}

	var alive []unsafe.Pointer
	allocated, freed, failed := 0, 0, 0

	for i := 0; i < ops; i++ {
		if len(alive) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(alive))
			a.Deallocate(alive[idx])
			alive[idx] = alive[len(alive)-1]
			alive = alive[:len(alive)-1]
			freed++
			continue
		}
		size := uintptr(8 + rng.Intn(512))
		ptr := a.Allocate(size, 8)
		if ptr == nil {
			failed++
			continue
		}
		alive = append(alive, ptr)
		allocated++
	}

	fmt.Printf("%-8s allocated=%-6d freed=%-6d failed=%-6d live=%-6d\n", engine, allocated, freed, failed, len(alive))

	if checkHeap != nil {
		if err := checkHeap(); err != nil {
			return fmt.Errorf("integrity check failed: %w", err)
		}
		fmt.Printf("%-8s heap OK\n", engine)
	}

	a.Release()
	return nil
}
