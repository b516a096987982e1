package driver

import (
	"log"
	"os"
	"runtime"
	"runtime/pprof"
)

// Profiler writes a CPU profile while it is open and a heap profile on
// Close. A Profiler with an empty filename is a no-op.
type Profiler struct {
	f        *os.File
	filename string
}

func NewProfiler(filename string) *Profiler {
	prof := &Profiler{filename: filename}
	if filename != "" {
		var err error
		prof.f, err = os.Create(filename)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(prof.f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
	}
	return prof
}

func (p *Profiler) Close() {
	if p.f == nil {
		return
	}
	pprof.StopCPUProfile()
	p.f.Close()

	runtime.GC()
	memProf, err := os.Create(p.filename + "-mem.prof")
	if err != nil {
		panic(err)
	}
	pprof.WriteHeapProfile(memProf)
	memProf.Close()
}
