package provider

// Native temperature ceiling per provider. The user-facing setting is
// a 0..100 integer; the native value is setting/100 multiplied by the
// ceiling: 0..2 for the OpenAI-compatible providers and Ollama, 0..1
// for Anthropic.
var temperatureCeiling = map[ID]float64{
	IDOpenAI:     2,
	IDOpenRouter: 2,
	IDOllama:     2,
	IDAnthropic:  1,
}

// ScaleTemperature rescales the 0..100 user setting into the
// provider's native range. Out-of-range settings are clamped.
func ScaleTemperature(id ID, setting int) float64 {
	if setting < 0 {
		setting = 0
	}
	if setting > 100 {
		setting = 100
	}
	return float64(setting) / 100 * temperatureCeiling[id]
}
