package corrector

// keyboardRows is the staggered QWERTY layout; each row is shifted half a
// key to the right of the one above it.
var keyboardRows = []string{
	"1234567890-=",
	"qwertyuiop[]\\",
	"asdfghjkl;'",
	"zxcvbnm,./",
}

// adjacency maps a key to the keys that physically touch it: its row
// neighbours, the two keys above it and the two keys below it.
var adjacency = func() map[byte][]byte {
	m := make(map[byte][]byte)
	at := func(row, col int) (byte, bool) {
		if row < 0 || row >= len(keyboardRows) || col < 0 || col >= len(keyboardRows[row]) {
			return 0, false
		}
		return keyboardRows[row][col], true
	}
	for r, row := range keyboardRows {
		for c := 0; c < len(row); c++ {
			for _, p := range [][2]int{
				{r, c - 1}, {r, c + 1},
				{r - 1, c}, {r - 1, c + 1},
				{r + 1, c - 1}, {r + 1, c},
			} {
				if k, ok := at(p[0], p[1]); ok {
					m[row[c]] = append(m[row[c]], k)
				}
			}
		}
	}
	return m
}()

// Neighbors returns the keys adjacent to c on a QWERTY keyboard. The slice
// must not be modified.
func Neighbors(c byte) []byte {
	return adjacency[c]
}
