// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.prof

package main

import (
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/edwinsyarief/jotai"
)

type person struct{}

func main() {
	// CPU Profiling
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	rounds := 10
	iters := 1000
	entities := 100000
	run(rounds, iters, entities)

	// Memory Profiling
	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC() // Trigger garbage collection
	_ = pprof.WriteHeapProfile(memFile)
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w, err := jotai.NewWorld(jotai.Options{Logger: jotai.NewDefaultLogger(slog.LevelError)})
		if err != nil {
			panic(err)
		}
		age := jotai.Define[person, uint8](w, "Age")
		vaccinated := jotai.Define[person, bool](w, "Vaccinated", jotai.WithDefault(false))
		adult := jotai.Derive1(w, "IsAdult", age, func(a uint8) bool { return a >= 18 })
		if err := w.Finalize(); err != nil {
			panic(err)
		}
		jotai.CreateIndex(w, adult)
		jotai.CreateIndex(w, vaccinated)
		people := jotai.Entities[person](w)
		for i := range numEntities {
			_, _ = people.Spawn(age.With(uint8(i%90)), vaccinated.With(i%3 == 0))
		}

		indexed := jotai.And(jotai.Eq(adult, true), jotai.Not(jotai.Eq(vaccinated, true)))
		scanned := jotai.And(jotai.AtLeast(age, 18), jotai.Eq(vaccinated, false))
		for i := range iters {
			// invalidate the cache every other round
			if i%2 == 0 {
				id, _ := people.At(i % numEntities)
				_ = vaccinated.Set(id, i%4 == 0)
			}
			jotai.Count(jotai.Query(w, indexed))
			if i%100 == 0 {
				jotai.Count(jotai.Query(w, scanned))
			}
		}
	}
}
