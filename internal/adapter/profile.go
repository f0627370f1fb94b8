package adapter

import (
	"fmt"

	"openfms/fitstream/internal/protocol"
)

// fieldType selects the profile conversion applied after base type decoding
type fieldType uint8

const (
	typePlain fieldType = iota
	typeDateTime
	typeLocalDateTime
)

type fieldProfile struct {
	name   string
	units  string
	scale  float64
	offset float64
	typ    fieldType
	enum   map[uint64]string
}

const (
	fieldTimestamp    uint8 = 253
	fieldMessageIndex uint8 = 254
)

var commonFields = map[uint8]fieldProfile{
	fieldTimestamp:    {name: "timestamp", units: "s", typ: typeDateTime},
	fieldMessageIndex: {name: "message_index"},
}

var (
	enumFile = map[uint64]string{
		1: "device", 2: "settings", 3: "sport", 4: "activity", 5: "workout", 6: "course",
		7: "schedules", 9: "weight", 10: "totals", 11: "goals", 14: "blood_pressure",
		15: "monitoring_a", 20: "activity_summary", 28: "monitoring_daily", 32: "monitoring_b",
		34: "segment", 35: "segment_list",
	}
	enumManufacturer = map[uint64]string{
		1: "garmin", 6: "srm", 7: "quarq", 9: "saris", 13: "dynastream_oem", 15: "dynastream",
		23: "suunto", 32: "wahoo_fitness", 68: "stages_cycling", 69: "sigmasport", 89: "tacx",
		123: "polar_electro", 255: "development", 260: "zwift", 265: "strava", 267: "bryton",
		268: "sram", 289: "hammerhead", 294: "coros",
	}
	enumDeviceIndex = map[uint64]string{
		0: "creator",
	}
	enumAntplusDeviceType = map[uint64]string{
		1: "antfs", 11: "bike_power", 12: "environment_sensor_legacy", 15: "multi_sport_speed_distance",
		16: "control", 17: "fitness_equipment", 18: "blood_pressure", 19: "geocache_node",
		20: "light_electric_vehicle", 25: "env_sensor", 26: "racquet", 27: "control_hub",
		31: "muscle_oxygen", 34: "shifting", 35: "bike_light_main", 36: "bike_light_shared",
		38: "exd", 40: "bike_radar", 46: "bike_aero", 119: "weight_scale", 120: "heart_rate",
		121: "bike_speed_cadence", 122: "bike_cadence", 123: "bike_speed", 124: "stride_speed_distance",
	}
	enumBatteryStatus = map[uint64]string{
		1: "new", 2: "good", 3: "ok", 4: "low", 5: "critical", 6: "charging", 7: "unknown",
	}
	enumSourceType = map[uint64]string{
		0: "ant", 1: "antplus", 2: "bluetooth", 3: "bluetooth_low_energy", 4: "wifi", 5: "local",
	}
	enumAntNetwork = map[uint64]string{
		0: "public", 1: "antplus", 2: "antfs", 3: "private",
	}
	enumEvent = map[uint64]string{
		0: "timer", 3: "workout", 4: "workout_step", 5: "power_down", 6: "power_up", 7: "off_course",
		8: "session", 9: "lap", 10: "course_point", 11: "battery", 12: "virtual_partner_pace",
		13: "hr_high_alert", 14: "hr_low_alert", 15: "speed_high_alert", 16: "speed_low_alert",
		17: "cad_high_alert", 18: "cad_low_alert", 19: "power_high_alert", 20: "power_low_alert",
		21: "recovery_hr", 22: "battery_low", 26: "activity", 27: "fitness_equipment", 28: "length",
		32: "user_marker", 33: "sport_point", 36: "calibration", 42: "front_gear_change",
		43: "rear_gear_change", 44: "rider_position_change", 47: "comm_timeout",
	}
	enumEventType = map[uint64]string{
		0: "start", 1: "stop", 2: "consecutive_depreciated", 3: "marker", 4: "stop_all",
		5: "begin_depreciated", 6: "end_depreciated", 7: "end_all_depreciated", 8: "stop_disable",
		9: "stop_disable_all",
	}
	enumSport = map[uint64]string{
		0: "generic", 1: "running", 2: "cycling", 3: "transition", 4: "fitness_equipment",
		5: "swimming", 6: "basketball", 7: "soccer", 8: "tennis", 9: "american_football",
		10: "training", 11: "walking", 12: "cross_country_skiing", 13: "alpine_skiing",
		14: "snowboarding", 15: "rowing", 16: "mountaineering", 17: "hiking", 18: "multisport",
		19: "paddling",
	}
	enumActivity = map[uint64]string{
		0: "manual", 1: "auto_multi_sport",
	}
)

var messageProfiles = map[protocol.MesgNum]map[uint8]fieldProfile{
	protocol.MesgNumFileID: {
		0: {name: "type", enum: enumFile},
		1: {name: "manufacturer", enum: enumManufacturer},
		2: {name: "product"},
		3: {name: "serial_number"},
		4: {name: "time_created", typ: typeDateTime},
		5: {name: "number"},
		8: {name: "product_name"},
	},
	protocol.MesgNumFileCreator: {
		0: {name: "software_version"},
		1: {name: "hardware_version"},
	},
	protocol.MesgNumEvent: {
		0: {name: "event", enum: enumEvent},
		1: {name: "event_type", enum: enumEventType},
		3: {name: "data"},
		4: {name: "event_group"},
	},
	protocol.MesgNumDeviceInfo: {
		0:  {name: "device_index", enum: enumDeviceIndex},
		1:  {name: "device_type", enum: enumAntplusDeviceType},
		2:  {name: "manufacturer", enum: enumManufacturer},
		3:  {name: "serial_number"},
		4:  {name: "product"},
		5:  {name: "software_version", scale: 100},
		6:  {name: "hardware_version"},
		7:  {name: "cum_operating_time", units: "s"},
		10: {name: "battery_voltage", units: "V", scale: 256},
		11: {name: "battery_status", enum: enumBatteryStatus},
		18: {name: "sensor_position"},
		19: {name: "descriptor"},
		20: {name: "ant_transmission_type"},
		21: {name: "ant_device_number"},
		22: {name: "ant_network", enum: enumAntNetwork},
		25: {name: "source_type", enum: enumSourceType},
		27: {name: "product_name"},
		32: {name: "battery_level", units: "%"},
	},
	protocol.MesgNumRecord: {
		0:  {name: "position_lat", units: "semicircles"},
		1:  {name: "position_long", units: "semicircles"},
		2:  {name: "altitude", units: "m", scale: 5, offset: 500},
		3:  {name: "heart_rate", units: "bpm"},
		4:  {name: "cadence", units: "rpm"},
		5:  {name: "distance", units: "m", scale: 100},
		6:  {name: "speed", units: "m/s", scale: 1000},
		7:  {name: "power", units: "watts"},
		13: {name: "temperature", units: "C"},
		73: {name: "enhanced_speed", units: "m/s", scale: 1000},
		78: {name: "enhanced_altitude", units: "m", scale: 5, offset: 500},
		81: {name: "battery_soc", units: "percent", scale: 2},
	},
	protocol.MesgNumLap: {
		0:  {name: "event", enum: enumEvent},
		1:  {name: "event_type", enum: enumEventType},
		2:  {name: "start_time", typ: typeDateTime},
		3:  {name: "start_position_lat", units: "semicircles"},
		4:  {name: "start_position_long", units: "semicircles"},
		7:  {name: "total_elapsed_time", units: "s", scale: 1000},
		8:  {name: "total_timer_time", units: "s", scale: 1000},
		9:  {name: "total_distance", units: "m", scale: 100},
		11: {name: "total_calories", units: "kcal"},
		25: {name: "sport", enum: enumSport},
	},
	protocol.MesgNumSession: {
		0:  {name: "event", enum: enumEvent},
		1:  {name: "event_type", enum: enumEventType},
		2:  {name: "start_time", typ: typeDateTime},
		5:  {name: "sport", enum: enumSport},
		7:  {name: "total_elapsed_time", units: "s", scale: 1000},
		8:  {name: "total_timer_time", units: "s", scale: 1000},
		9:  {name: "total_distance", units: "m", scale: 100},
		11: {name: "total_calories", units: "kcal"},
		14: {name: "avg_speed", units: "m/s", scale: 1000},
		16: {name: "avg_heart_rate", units: "bpm"},
		20: {name: "avg_power", units: "watts"},
	},
	protocol.MesgNumActivity: {
		0: {name: "total_timer_time", units: "s", scale: 1000},
		1: {name: "num_sessions"},
		2: {name: "type", enum: enumActivity},
		3: {name: "event", enum: enumEvent},
		4: {name: "event_type", enum: enumEventType},
		5: {name: "local_timestamp", typ: typeLocalDateTime},
	},
}

// lookupField returns the profile of a field, falling back to the fields
// shared by all messages and finally to an unknown_field_<n> name.
func lookupField(mesg protocol.MesgNum, num uint8) fieldProfile {
	if fields, ok := messageProfiles[mesg]; ok {
		if fp, ok := fields[num]; ok {
			return fp
		}
	}
	if fp, ok := commonFields[num]; ok {
		return fp
	}
	return fieldProfile{name: fmt.Sprintf("unknown_field_%d", num)}
}
