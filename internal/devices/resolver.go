// Package devices consolidates device_info messages into one entry per
// recording device.
package devices

import (
	"iter"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"openfms/fitstream/internal/protocol"
)

const creatorIndex = "creator"

// Result is the outcome of a resolution pass
type Result struct {
	Creator *Device
	// network devices by ascending key, then serial devices by ascending key
	Devices []*Device

	// device_info messages that could not be attributed to a device
	Dropped int
	// a device was found under both identity schemes and is listed twice
	Overlap bool
}

// ResultView is the serializable form of a Result
type ResultView struct {
	Creator map[string]any   `json:"creator" yaml:"creator"`
	Devices []map[string]any `json:"devices" yaml:"devices"`
}

func (r Result) View() ResultView {
	view := ResultView{
		Creator: r.Creator.View(),
		Devices: make([]map[string]any, 0, len(r.Devices)),
	}
	for _, d := range r.Devices {
		view.Devices = append(view.Devices, d.View())
	}
	return view
}

// CountByScheme returns the number of resolved devices per identity scheme.
func (r Result) CountByScheme() map[Scheme]int {
	counts := make(map[Scheme]int)
	for _, d := range r.Devices {
		counts[d.Scheme]++
	}
	return counts
}

// Resolver accumulates records in a single pass. It never fails: records
// it cannot attribute are logged and dropped.
type Resolver struct {
	creator  *Device
	byANT    map[uint64]*Device
	bySerial map[uint64]*Device
	dropped  int

	// every serial number ever reported by a network device, including
	// snapshots later replaced
	antSerials map[uint64]struct{}

	logger zerolog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger receiving resolution warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a new resolver
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		creator:    newDevice(SchemeCreator, 0),
		byANT:      make(map[uint64]*Device),
		bySerial:   make(map[uint64]*Device),
		antSerials: make(map[uint64]struct{}),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extract resolves all records of seq.
func Extract(seq iter.Seq[*protocol.Record], opts ...Option) Result {
	r := NewResolver(opts...)
	for rec := range seq {
		r.Add(rec)
	}
	return r.Result()
}

// Add feeds one record. Only device_info and record messages are used.
func (r *Resolver) Add(rec *protocol.Record) {
	switch rec.Kind() {
	case protocol.MesgNumDeviceInfo:
		r.addDeviceInfo(rec)
	case protocol.MesgNumRecord:
		// last sample wins, regardless of timestamps
		if f, ok := rec.Field("battery_soc"); ok {
			r.creator.setOverlay(f)
		}
	}
}

func (r *Resolver) addDeviceInfo(rec *protocol.Record) {
	if index, ok := rec.Value("device_index"); ok {
		if s, ok := index.Str(); ok && s == creatorIndex {
			r.creator.merge(rec)
			return
		}
	}

	if key, ok := identity(rec, "ant_device_number"); ok {
		if sn, ok := identity(rec, "serial_number"); ok {
			r.antSerials[sn] = struct{}{}
		}
		mergeInto(r.byANT, SchemeANT, key, rec)
		return
	}
	if key, ok := identity(rec, "serial_number"); ok {
		mergeInto(r.bySerial, SchemeSerial, key, rec)
		return
	}

	r.dropped++
	r.logger.Warn().
		Stringer("record", rec).
		Msg("DeviceInfo without ant_device_number or serial_number, dropped")
}

func mergeInto(m map[uint64]*Device, scheme Scheme, key uint64, rec *protocol.Record) {
	d, ok := m[key]
	if !ok {
		d = newDevice(scheme, key)
		m[key] = d
	}
	d.merge(rec)
}

func identity(rec *protocol.Record, name string) (uint64, bool) {
	v, ok := rec.Value(name)
	if !ok || v.IsUnset() {
		return 0, false
	}
	return v.Uint()
}

// Result combines the identity maps. When both schemes are in use the union
// is returned; devices are never deduplicated across schemes. A single
// warning is logged if a network device reports a serial number that also
// keys a serial device.
func (r *Resolver) Result() Result {
	res := Result{Creator: r.creator, Dropped: r.dropped}

	ant := sortedDevices(r.byANT)
	serial := sortedDevices(r.bySerial)
	switch {
	case len(ant) == 0:
		res.Devices = serial
	case len(serial) == 0:
		res.Devices = ant
	default:
		res.Devices = append(ant, serial...)
		if dups := r.duplicates(); len(dups) > 0 {
			res.Overlap = true
			r.logger.Warn().
				Uints64("serial_numbers", dups).
				Msg("Devices found under both ant_device_number and serial_number, keeping both (there may be duplicates)")
		}
	}
	return res
}

// duplicates returns, in ascending order, the serial numbers keying a
// serial device that a network device has reported at any point.
func (r *Resolver) duplicates() []uint64 {
	var out []uint64
	for _, sn := range slices.Sorted(maps.Keys(r.antSerials)) {
		if _, found := r.bySerial[sn]; found {
			out = append(out, sn)
		}
	}
	return out
}

func sortedDevices(m map[uint64]*Device) []*Device {
	out := make([]*Device, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[key])
	}
	return out
}
