package boss

// Type codes occupy the low 3 bits of a header's first byte.
const (
	typeIntPositive uint8 = 0
	typeExtra       uint8 = 1
	typeIntNegative uint8 = 2
	typeString      uint8 = 3
	typeBytes       uint8 = 4
	typeCacheRef    uint8 = 5
	typeArray       uint8 = 6
	typeMapping     uint8 = 7
)

// Extra subcodes (type code 1), one fixed byte each in the header's value slot.
const (
	extraDZero       = 1
	extraDOne        = 2
	extraDMinusOne   = 3
	extraDouble      = 4
	extraTrue        = 5
	extraFalse       = 6
	extraTime        = 7
	extraStreamMode  = 8
)

// smallValueLimit is the largest value that fits directly in the header's
// high 5 bits (0..22); 23 and above switch to the trailing-byte-count form.
const smallValueLimit = 22
