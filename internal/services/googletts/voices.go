package googletts

// voiceTable maps GV voice ids to Chirp 3 HD voice names.
var voiceTable = [...]string{
	"Alnilam", "Achernar", "Achird", "Algenib", "Algieba",
	"Aoede", "Autonoe", "Callirrhoe", "Charon", "Despina",
	"Enceladus", "Erinome", "Fenrir", "Gacrux", "Iapetus",
	"Kore", "Laomedeia", "Leda", "Orus", "Pulcherrima",
	"Puck", "Rasalgethi", "Sadachbia", "Sadaltager", "Schedar",
	"Sulafat", "Umbriel", "Vindemiatrix", "Zephyr", "Zubenelgenubi",
}

// DefaultVoice is used for ids outside the table.
const DefaultVoice = "Alnilam"

// VoiceName returns the voice for a 1-based GV id, falling back to
// DefaultVoice.
func VoiceName(id int64) string {
	if id < 1 || id > int64(len(voiceTable)) {
		return DefaultVoice
	}
	return voiceTable[id-1]
}

// Voices returns the table in id order.
func Voices() []string {
	out := make([]string, len(voiceTable))
	copy(out, voiceTable[:])
	return out
}
