package rt

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/csxmv/csxmv/internal/logging"
)

// Topology maps each CPU id to the NUMA node it belongs to, per spec.md
// §4.8's "discover node of each CPU".
type Topology struct {
	cpuNode map[int]int
	nodes   []int
}

// DiscoverTopology reads /sys/devices/system/node to build a CPU->node
// map. On platforms without that sysfs tree (non-Linux, or Linux without
// NUMA), it returns a single-node topology covering 0..numCPU-1 so
// callers can treat "no NUMA" uniformly rather than special-casing it.
func DiscoverTopology(numCPU int) *Topology {
	t := &Topology{cpuNode: make(map[int]int)}

	entries, err := os.ReadDir("/sys/devices/system/node")
	if err != nil {
		logging.Default.Debugf("rt: no NUMA sysfs tree (%v), falling back to a single-node topology", err)
		return uniformTopology(numCPU)
	}

	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "node") {
			continue
		}
		node, err := strconv.Atoi(strings.TrimPrefix(name, "node"))
		if err != nil {
			continue
		}
		cpus, err := readCPUList(filepath.Join("/sys/devices/system/node", name, "cpulist"))
		if err != nil {
			continue
		}
		t.nodes = append(t.nodes, node)
		for _, cpu := range cpus {
			t.cpuNode[cpu] = node
		}
	}
	if len(t.cpuNode) == 0 {
		return uniformTopology(numCPU)
	}
	return t
}

func uniformTopology(numCPU int) *Topology {
	t := &Topology{cpuNode: make(map[int]int), nodes: []int{0}}
	for c := 0; c < numCPU; c++ {
		t.cpuNode[c] = 0
	}
	return t
}

// NodeOf returns the NUMA node of cpu, or -1 if unknown.
func (t *Topology) NodeOf(cpu int) int {
	if n, ok := t.cpuNode[cpu]; ok {
		return n
	}
	return -1
}

// Nodes returns the distinct NUMA node ids discovered.
func (t *Topology) Nodes() []int { return t.nodes }

// readCPUList parses a sysfs "cpulist" file: comma-separated ids and
// ranges, e.g. "0-3,8".
func readCPUList(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var out []int
	for sc.Scan() {
		for _, part := range strings.Split(strings.TrimSpace(sc.Text()), ",") {
			if part == "" {
				continue
			}
			if lo, hi, ok := strings.Cut(part, "-"); ok {
				a, err1 := strconv.Atoi(lo)
				b, err2 := strconv.Atoi(hi)
				if err1 != nil || err2 != nil {
					continue
				}
				for c := a; c <= b; c++ {
					out = append(out, c)
				}
			} else {
				c, err := strconv.Atoi(part)
				if err != nil {
					continue
				}
				out = append(out, c)
			}
		}
	}
	return out, sc.Err()
}

// AllocOnNode returns a size-length float64 slice intended to be resident
// on node. True page-binding requires the mbind(2) syscall, whose number
// is architecture-specific and not exposed as a portable wrapper in
// golang.org/x/sys/unix; this allocates ordinary Go memory and relies on
// first-touch placement (the pages land on node only if the goroutine
// that first writes the slice is pinned to a CPU on node via
// SetAffinity) rather than binding, and is therefore a
// best-effort approximation of spec.md §4.8's alloc_onnode. See
// DESIGN.md.
func AllocOnNode(size int, node int) []float64 {
	return make([]float64, size)
}

// AllocInterleaved returns a slice partitioned into len(partSizes)
// contiguous segments, each best-effort placed per AllocOnNode's
// first-touch caveat on the corresponding entry of nodes.
func AllocInterleaved(partSizes []int, nodes []int) ([]float64, error) {
	if len(partSizes) != len(nodes) {
		return nil, fmt.Errorf("rt: partSizes and nodes length mismatch (%d vs %d)", len(partSizes), len(nodes))
	}
	total := 0
	for _, s := range partSizes {
		total += s
	}
	return make([]float64, total), nil
}
