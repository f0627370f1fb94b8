package devices

import (
	"time"

	"github.com/elliotchance/orderedmap/v3"

	"openfms/fitstream/internal/protocol"
)

// Scheme names the identity a device was resolved by
type Scheme string

const (
	SchemeCreator Scheme = "creator"
	SchemeANT     Scheme = "ant_device_number"
	SchemeSerial  Scheme = "serial_number"
)

// Device is the consolidated field set of one recording device.
type Device struct {
	Scheme Scheme
	Key    uint64

	fields *orderedmap.OrderedMap[string, protocol.Field]
	// values set outside of device_info merges, kept across replacements
	overlay *orderedmap.OrderedMap[string, protocol.Field]
}

func newDevice(scheme Scheme, key uint64) *Device {
	return &Device{
		Scheme:  scheme,
		Key:     key,
		fields:  orderedmap.NewOrderedMap[string, protocol.Field](),
		overlay: orderedmap.NewOrderedMap[string, protocol.Field](),
	}
}

// merge swaps in the record's whole field set if the record is newer:
// its timestamp is later, or the device has no timestamp yet.
func (d *Device) merge(rec *protocol.Record) bool {
	cur, hasCur := d.Timestamp()
	next, hasNext := timestampOf(rec)

	replace := !hasCur || (hasNext && next.After(cur))
	if !replace {
		return false
	}

	fields := orderedmap.NewOrderedMapWithCapacity[string, protocol.Field](rec.Len())
	for _, f := range rec.Fields() {
		fields.Set(f.Name, f)
	}
	d.fields = fields
	return true
}

func (d *Device) setOverlay(f protocol.Field) {
	d.overlay.Set(f.Name, f)
}

// Timestamp returns the timestamp of the record the device was last
// replaced with.
func (d *Device) Timestamp() (time.Time, bool) {
	f, ok := d.fields.Get("timestamp")
	if !ok {
		return time.Time{}, false
	}
	return f.Value.Time()
}

func (d *Device) Value(name string) (protocol.Value, bool) {
	if f, ok := d.overlay.Get(name); ok {
		return f.Value, true
	}
	f, ok := d.fields.Get(name)
	return f.Value, ok
}

// Fields returns the merged fields in record order, then overlay fields
// not present in the record.
func (d *Device) Fields() []protocol.Field {
	out := make([]protocol.Field, 0, d.fields.Len()+d.overlay.Len())
	for el := d.fields.Front(); el != nil; el = el.Next() {
		if f, ok := d.overlay.Get(el.Key); ok {
			out = append(out, f)
			continue
		}
		out = append(out, el.Value)
	}
	for el := d.overlay.Front(); el != nil; el = el.Next() {
		if _, ok := d.fields.Get(el.Key); !ok {
			out = append(out, el.Value)
		}
	}
	return out
}

func (d *Device) Len() int {
	return len(d.Fields())
}

// Equal reports whether both devices hold the same fields in the same order.
func (d *Device) Equal(o *Device) bool {
	a, b := d.Fields(), o.Fields()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

// View flattens the device into field name -> value.
func (d *Device) View() map[string]any {
	out := make(map[string]any, d.fields.Len()+d.overlay.Len())
	for _, f := range d.Fields() {
		out[f.Name] = f.Value.Interface()
	}
	return out
}

func timestampOf(rec *protocol.Record) (time.Time, bool) {
	v, ok := rec.Value("timestamp")
	if !ok {
		return time.Time{}, false
	}
	return v.Time()
}
