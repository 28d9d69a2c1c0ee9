package events

import (
	"math"
	"strings"

	"github.com/IBM/sarama"
)

// SymbolPartitioner distributes messages based on the alphabetical order of
// their ticker-symbol keys. It maps symbols to a continuous range [0.0, 1.0)
// and splits them evenly across available partitions, so consumers can
// reason about which partition carries which slice of the alphabet.
type SymbolPartitioner struct {
	fallback sarama.Partitioner
}

// NewSymbolPartitioner initializes a new partitioner instance.
func NewSymbolPartitioner(topic string) sarama.Partitioner {
	return &SymbolPartitioner{
		fallback: sarama.NewHashPartitioner(topic),
	}
}

// Partition determines the partition ID for a given message by scaling the
// alphabetical position of the symbol to the number of available partitions.
func (p *SymbolPartitioner) Partition(msg *sarama.ProducerMessage, numPartitions int32) (int32, error) {
	keyBytes, err := msg.Key.Encode()
	if err != nil || len(keyBytes) == 0 {
		return p.fallback.Partition(msg, numPartitions)
	}
	symbol := strings.ToUpper(string(keyBytes))

	position := symbolPosition(symbol)
	partition := int32(math.Floor(position * float64(numPartitions)))

	// Boundary check to keep the index within [0, numPartitions-1].
	if partition >= numPartitions {
		partition = numPartitions - 1
	}
	return partition, nil
}

// RequiresConsistency indicates that the same symbol always maps to the same
// partition, provided the partition count stays constant.
func (p *SymbolPartitioner) RequiresConsistency() bool {
	return true
}

// symbolPosition converts a symbol into a float64 in [0.0, 1.0), treating
// the string as a base-26 number where 'A'=0 and 'Z'=25.
func symbolPosition(s string) float64 {
	var score float64
	weight := 1.0 / 26.0

	// Limit precision to avoid floating point issues.
	const precisionLimit = 5
	limit := min(len(s), precisionLimit)

	for i := 0; i < limit; i++ {
		char := s[i]

		val := 0.0
		if char >= 'A' && char <= 'Z' {
			val = float64(char - 'A')
		} else if char >= 'a' && char <= 'z' {
			val = float64(char - 'a')
		}

		score += val * weight
		weight /= 26.0
	}
	return score
}
