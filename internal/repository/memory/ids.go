package memory

import "fmt"

func sequenceID(prefix string, seq int) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}
