package domain

import "sync/atomic"

// CPUDevice is the DeviceID a worker is given when it is not bound to an
// accelerator.
const CPUDevice = -1

// DeviceAssigner is a thread-safe round-robin allocator over a fixed
// accelerator count. It never favors an idle device over a busy one — pure
// rotation, diluting hotspots statistically rather than tracking load.
type DeviceAssigner struct {
	count  int
	cursor atomic.Int64
}

// NewDeviceAssigner builds an assigner over [0, count). count == 0 disables
// accelerator assignment entirely; Next then always returns CPUDevice.
func NewDeviceAssigner(count int) *DeviceAssigner {
	if count < 0 {
		count = 0
	}
	return &DeviceAssigner{count: count}
}

// Enabled reports whether this assigner has any accelerators to hand out.
func (d *DeviceAssigner) Enabled() bool {
	return d.count > 0
}

// Next returns the next device id in rotation, or CPUDevice if disabled.
// For any sequence of calls, the k-th successful assignment equals
// k mod deviceCount.
func (d *DeviceAssigner) Next() int {
	if d.count <= 0 {
		return CPUDevice
	}
	n := d.cursor.Add(1) - 1
	return int(n % int64(d.count))
}
