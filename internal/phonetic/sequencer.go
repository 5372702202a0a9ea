package phonetic

// Diphones walks adjacent phone pairs and returns the unit identifiers to play.
// Punctuation is emitted on its own and never paired; a phone directly
// followed by punctuation contributes no pair.
func Diphones(phones []string) []string {
	if len(phones) < 2 {
		return nil
	}
	seq := make([]string, 0, len(phones)-1)
	for i := 0; i < len(phones)-1; i++ {
		current, next := phones[i], phones[i+1]
		switch {
		case IsPunctuation(current):
			seq = append(seq, current)
		case IsPunctuation(next):
		default:
			seq = append(seq, current+Separator+next)
		}
	}
	return seq
}
