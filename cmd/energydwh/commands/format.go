package commands

import "time"

// fmtRound is the rounding applied to durations printed by commands.
const fmtRound = 10 * time.Millisecond
