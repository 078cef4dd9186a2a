package gammon

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// Roller produces die values between 1 and 6.
type Roller interface {
	Roll() int8
}

// RollerFunc adapts a function to the Roller interface.
type RollerFunc func() int8

func (f RollerFunc) Roll() int8 {
	return f()
}

// CryptoRoller rolls dice using crypto/rand. It is used when a game has no roller set.
var CryptoRoller Roller = RollerFunc(func() int8 {
	return int8(RandInt(6) + 1)
})

// FixedRoller returns a Roller that yields values in order, repeating the sequence
// once it is exhausted. It may be shared by concurrent games.
func FixedRoller(values ...int8) Roller {
	var i int
	var lock sync.Mutex
	return RollerFunc(func() int8 {
		if len(values) == 0 {
			return 1
		}
		lock.Lock()
		defer lock.Unlock()
		v := values[i%len(values)]
		i++
		return v
	})
}

// RandInt returns a uniformly random integer in [0, max).
func RandInt(max int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}
	return int(i.Int64())
}
