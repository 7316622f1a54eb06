//go:build linux

package rt

import "golang.org/x/sys/unix"

// SetAffinity binds the calling OS thread to cpu, per spec.md §4.8's
// set_affinity(cpu). The caller must have already called
// runtime.LockOSThread, or the binding will migrate with the next
// goroutine reschedule onto a different OS thread.
func SetAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// affinityOf returns the CPU set the calling thread is currently
// restricted to.
func affinityOf() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < set.Count(); i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
