// Profiling:
// go build ./profile/cascade
// go tool pprof -http=":8000" -nodefraction=0.001 ./cascade mem.pprof

package main

import (
	"log/slog"

	"github.com/edwinsyarief/jotai"
	"github.com/pkg/profile"
)

type person struct{}

func main() {
	rounds := 20
	iters := 100
	entities := 10000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w, err := jotai.NewWorld(jotai.Options{
			InitialCapacity: numEntities,
			Logger:          jotai.NewDefaultLogger(slog.LevelError),
		})
		if err != nil {
			panic(err)
		}
		age := jotai.Define[person, uint8](w, "Age")
		weight := jotai.Define[person, uint16](w, "Weight", jotai.WithDefault[uint16](60))
		adult := jotai.Derive1(w, "IsAdult", age, func(a uint8) bool { return a >= 18 })
		bmiBand := jotai.Derive2(w, "Band", age, weight, func(a uint8, kg uint16) uint8 {
			return uint8(int(kg)/10 + int(a)/20)
		})
		jotai.Derive2(w, "Flag", adult, bmiBand, func(ad bool, b uint8) bool { return ad && b > 8 })
		if err := w.Finalize(); err != nil {
			panic(err)
		}
		jotai.CreateIndex(w, adult)
		jotai.CreateIndex(w, bmiBand)

		ids := jotai.Entities[person](w).CreateBatch(numEntities)
		for i := range iters {
			for j, id := range ids {
				_ = age.Set(id, uint8((i+j)%90))
			}
		}
	}
}
