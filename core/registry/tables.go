package registry

// Reference coordinates near each community's CPE. These do not pinpoint the
// households of the members, only nearby locations in the Porto area.
var (
	selLocation    = Location{Latitude: 41.158005, Longitude: -8.663735}
	indataLocation = Location{Latitude: 41.151163, Longitude: -8.652882}
)

var selTariffCycles = map[string]TariffCycle{
	"00e61ee19628": CycleSimples,
	"05a92c8c62aa": CycleBi,
	"0c7886733863": CycleTri,
	"170f37bdf13f": CycleSimples,
	"1a9defc4ff40": CycleBi,
	"1bb05aef72da": CycleTri,
	"2e7aa1e3f706": CycleSimples,
	"39bfae7af603": CycleBi,
	"3eab161b76b4": CycleTri,
	"493ad0182e0c": CycleSimples,
	"4cbe01cb9cfd": CycleBi,
	"4f1c99c0c199": CycleTri,
	"6164e03bd2a7": CycleSimples,
	"61fc5293fd52": CycleBi,
	"63aee2538cdc": CycleTri,
	"704b6f864760": CycleSimples,
	"78c602cc58bb": CycleBi,
	"7ae273adbe80": CycleTri,
	"8861e8af7053": CycleSimples,
	"8cc637b3bb53": CycleBi,
	"92eac9402957": CycleTri,
	"94f356c4717c": CycleSimples,
	"a76698a2563f": CycleBi,
	"aa0ed5960c57": CycleTri,
	"ad1fdca09bb0": CycleSimples,
	"b27a89d8336c": CycleBi,
	"bcb843d5c0c6": CycleTri,
	"d1cbe72edcb6": CycleSimples,
	"d1e49ca67e63": CycleBi,
	"dead79656d17": CycleTri,
	"f3c07b9293f7": CycleSimples,
	"f4a53aae164a": CycleBi,
	"f4f44dd669e8": CycleTri,
	"fbe599917f4d": CycleSimples,
	SharedMeterKey: CycleSimples,
}

var indataTariffCycles = map[string]TariffCycle{
	"0cb815fd4dec": CycleSimples,
	"0cb815fd4bcc": CycleBi,
	"0cb815fc5350": CycleTri,
	"0cb815fcc358": CycleSimples,
	"34987a685128": CycleBi,
	"0cb815fcc31c": CycleTri,
	"0cb815fcf5b4": CycleSimples,
	"0cb815fd15bc": CycleBi,
	"0cb815fd4b30": CycleTri,
	"0cb815fc72bc": CycleSimples,
	"0cb815fd3608": CycleBi,
	"34987a675924": CycleTri,
	"0cb815fcc220": CycleSimples,
	"0cb815fc6178": CycleBi,
	"0cb815fd1d38": CycleTri,
	"0cb815fd5654": CycleSimples,
	"0cb815fd534c": CycleBi,
	"34987a676138": CycleTri,
	"34987a675060": CycleSimples,
	"0cb815fd49c4": CycleBi,
	SharedMeterKey: CycleSimples,
}

// Initially installed PV capacities, in kWp. Meters at 0 have no PV of their
// own and get their generation profile estimated from PVGIS.
var selPVInfo = map[string]float64{
	"00e61ee19628": 0,
	"05a92c8c62aa": 0,
	"0c7886733863": 6.00,
	"170f37bdf13f": 0,
	"1a9defc4ff40": 0,
	"1bb05aef72da": 0,
	"2e7aa1e3f706": 9.20,
	"39bfae7af603": 0,
	"3eab161b76b4": 0.52,
	"493ad0182e0c": 0,
	"4cbe01cb9cfd": 0.68,
	"4f1c99c0c199": 0,
	"6164e03bd2a7": 1.28,
	"61fc5293fd52": 0,
	"63aee2538cdc": 0,
	"704b6f864760": 0,
	"78c602cc58bb": 0,
	"7ae273adbe80": 0,
	"8861e8af7053": 0,
	"8cc637b3bb53": 0,
	"92eac9402957": 0,
	"94f356c4717c": 8.00,
	"a76698a2563f": 2.00,
	"aa0ed5960c57": 0,
	"ad1fdca09bb0": 0,
	"b27a89d8336c": 0,
	"bcb843d5c0c6": 0,
	"d1cbe72edcb6": 0,
	"d1e49ca67e63": 36.00,
	"dead79656d17": 0,
	"f3c07b9293f7": 0,
	"f4a53aae164a": 0,
	"f4f44dd669e8": 0,
	"fbe599917f4d": 0,
}

var indataPVInfo = map[string]float64{
	"0cb815fd4dec": 0,
	"0cb815fd4bcc": 0,
	"0cb815fc5350": 0,
	"0cb815fcc358": 0,
	"34987a685128": 0,
	"0cb815fcc31c": 0,
	"0cb815fcf5b4": 0,
	"0cb815fd15bc": 0,
	"0cb815fd4b30": 0,
	"0cb815fc72bc": 0,
	"0cb815fd3608": 0,
	"34987a675924": 0,
	"0cb815fcc220": 0,
	"0cb815fc6178": 0,
	"0cb815fd1d38": 0,
	"0cb815fd5654": 0,
	"0cb815fd534c": 0,
	"34987a676138": 0,
	"34987a675060": 0,
	"0cb815fd49c4": 0,
}

func sub(id string) *string { return &id }

// Device streams per SEL meter. Every meter reports its total consumption
// through a MAIN_METER stream; meters with PV report generation through a
// second PV stream.
var selSensors = map[string][]SELSensor{
	"00e61ee19628": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"05a92c8c62aa": {{DeviceType: "MAIN_METER", SubSensorID: sub("2")}},
	"0c7886733863": {{DeviceType: "MAIN_METER"}, {DeviceType: "PV", SubSensorID: sub("1")}},
	"170f37bdf13f": {{DeviceType: "MAIN_METER"}},
	"1a9defc4ff40": {{DeviceType: "MAIN_METER"}},
	"1bb05aef72da": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"2e7aa1e3f706": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}, {DeviceType: "PV", SubSensorID: sub("1")}},
	"39bfae7af603": {{DeviceType: "MAIN_METER"}},
	"3eab161b76b4": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}, {DeviceType: "PV"}},
	"493ad0182e0c": {{DeviceType: "MAIN_METER", SubSensorID: sub("1")}},
	"4cbe01cb9cfd": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}, {DeviceType: "PV", SubSensorID: sub("1")}},
	"4f1c99c0c199": {{DeviceType: "MAIN_METER"}},
	"6164e03bd2a7": {{DeviceType: "MAIN_METER"}, {DeviceType: "PV", SubSensorID: sub("0")}},
	"61fc5293fd52": {{DeviceType: "MAIN_METER"}},
	"63aee2538cdc": {{DeviceType: "MAIN_METER"}},
	"704b6f864760": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"78c602cc58bb": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"7ae273adbe80": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"8861e8af7053": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"8cc637b3bb53": {{DeviceType: "MAIN_METER"}},
	"92eac9402957": {{DeviceType: "MAIN_METER"}},
	"94f356c4717c": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}, {DeviceType: "PV", SubSensorID: sub("1")}},
	"a76698a2563f": {{DeviceType: "MAIN_METER"}, {DeviceType: "PV"}},
	"aa0ed5960c57": {{DeviceType: "MAIN_METER"}},
	"ad1fdca09bb0": {{DeviceType: "MAIN_METER"}},
	"b27a89d8336c": {{DeviceType: "MAIN_METER"}},
	"bcb843d5c0c6": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"d1cbe72edcb6": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"d1e49ca67e63": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}, {DeviceType: "PV"}},
	"dead79656d17": {{DeviceType: "MAIN_METER", SubSensorID: sub("2")}},
	"f3c07b9293f7": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"f4a53aae164a": {{DeviceType: "MAIN_METER"}},
	"f4f44dd669e8": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
	"fbe599917f4d": {{DeviceType: "MAIN_METER", SubSensorID: sub("0")}},
}

// Shelly phase carrying the net load of each INDATA meter.
var indataPhases = map[string]string{
	"0cb815fd4dec": "total",
	"0cb815fd4bcc": "total",
	"0cb815fc5350": "a",
	"0cb815fcc358": "a",
	"34987a685128": "a",
	"0cb815fcc31c": "total",
	"0cb815fcf5b4": "a",
	"0cb815fd15bc": "total",
	"0cb815fd4b30": "a",
	"0cb815fc72bc": "total",
	"0cb815fd3608": "total",
	"34987a675924": "total",
	"0cb815fcc220": "total",
	"0cb815fc6178": "total",
	"0cb815fd1d38": "total",
	"0cb815fd5654": "total",
	"0cb815fd534c": "total",
	"34987a676138": "total",
	"34987a675060": "total",
	"0cb815fd49c4": "a",
}
