package slime

import "math"

// Simulation constants. The field is a side view: x grows rightward across
// the pitch, y grows upward from the ground line at 0.
const (
	TickRate = 30
	Dt       = 1.0 / float64(TickRate)

	FieldWidth  = 800.0
	FieldHeight = 400.0

	BodyRadius = 40.0
	BallRadius = 12.0

	Gravity   = -1800.0
	MoveSpeed = 360.0
	JumpSpeed = 720.0

	// GoalHeight is the goal-mouth height at each end of the field.
	GoalHeight = 140.0
	// GoalThirdWidth bounds the own-goal dwell zone in front of each goal.
	GoalThirdWidth = FieldWidth / 3

	MaxBallSpeed  = 1200.0
	BounceDamping = 0.7
	BallDamping   = 0.995

	OrbitRadius     = BodyRadius + BallRadius
	GrabRange       = OrbitRadius + 8.0
	SwingAccel      = 18.0
	MaxAngularSpeed = 14.0
	KnockLooseSpeed = 450.0
	DeflectSpeed    = 420.0

	MatchDurationTicks = 180 * TickRate
	GoalPauseTicks     = 90
	OwnGoalDwellTicks  = TickRate // 1 second in the own goal third

	leftStartX  = 280.0
	rightStartX = FieldWidth - 280.0

	halfPi = math.Pi / 2
)
