package slime

import "math"

const (
	PhasePlaying   = "playing"
	PhaseGoalPause = "goal_pause"
	PhaseEnded     = "ended"

	SideLeft  = 1
	SideRight = 2
)

// Keys is the latest control snapshot for one side. Snapshots are overwritten,
// never queued: the simulation consumes whatever is current when it ticks.
type Keys struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Jump  bool `json:"jump"`
	Grab  bool `json:"grab"`
}

// Body is one slime. Y is the height of the body's base above the ground, so
// a grounded body has Y == 0 and its center sits at Y + BodyRadius.
type Body struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	VX             float64 `json:"vx"`
	VY             float64 `json:"vy"`
	Grabbing       bool    `json:"grabbing"`
	HasBall        bool    `json:"has_ball"`
	GoalDwellTicks int     `json:"goal_dwell_ticks"`
}

// Ball state. While held, Angle/AngularVel describe the orbit around the
// holder; position and velocity are derived from them each tick.
type Ball struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	HeldBy     int     `json:"held_by"`
	Angle      float64 `json:"angle"`
	AngularVel float64 `json:"angular_vel"`
}

type Event struct {
	Type string `json:"type"`
	Side int    `json:"side,omitempty"`
}

type State struct {
	Left           Body   `json:"left"`
	Right          Body   `json:"right"`
	Ball           Ball   `json:"ball"`
	ScoreLeft      int    `json:"score_left"`
	ScoreRight     int    `json:"score_right"`
	RemainingTicks int    `json:"remaining_ticks"`
	Phase          string `json:"phase"`
	PauseTicks     int    `json:"pause_ticks,omitempty"`
	Winner         int    `json:"winner,omitempty"`
	Draw           bool   `json:"draw,omitempty"`
}

func NewState() State {
	state := State{
		Phase:          PhasePlaying,
		RemainingTicks: MatchDurationTicks,
	}
	state.resetPositions()
	return state
}

func (that *State) resetPositions() {
	that.Left = Body{X: leftStartX}
	that.Right = Body{X: rightStartX}
	that.Ball = Ball{X: FieldWidth / 2, Y: FieldHeight / 2}
}

// Tick advances the simulation one fixed step using the latest control
// snapshots and returns the next state plus any events produced this step.
func (that State) Tick(leftKeys, rightKeys Keys) (State, []Event) {
	if that.Phase == PhaseEnded {
		return that, nil
	}

	next := that
	var events []Event

	next.RemainingTicks--

	if next.Phase == PhaseGoalPause {
		next.PauseTicks--
		if next.PauseTicks <= 0 {
			next.PauseTicks = 0
			next.Phase = PhasePlaying
		}
		if next.RemainingTicks <= 0 {
			events = append(events, next.finish())
		}
		return next, events
	}

	stepBody(&next.Left, leftKeys)
	stepBody(&next.Right, rightKeys)

	next.stepBall(leftKeys, rightKeys)

	next.resolveBodyBall(SideLeft)
	next.resolveBodyBall(SideRight)

	if side := next.goalScored(); side != 0 {
		next.awardGoal(side)
		events = append(events, Event{Type: "goal", Side: side})
	}

	if side := next.trackGoalDwell(); side != 0 {
		next.awardGoal(side)
		events = append(events, Event{Type: "own_goal", Side: side})
	}

	clampBallSpeed(&next.Ball)

	if next.RemainingTicks <= 0 {
		events = append(events, next.finish())
	}

	return next, events
}

func stepBody(body *Body, keys Keys) {
	body.VX = 0
	if keys.Left {
		body.VX -= MoveSpeed
	}
	if keys.Right {
		body.VX += MoveSpeed
	}

	grounded := body.Y <= 0
	if keys.Jump && grounded && !body.Grabbing {
		body.VY = JumpSpeed
	}

	body.VY += Gravity * Dt
	body.X += body.VX * Dt
	body.Y += body.VY * Dt

	if body.X < BodyRadius {
		body.X = BodyRadius
	}
	if body.X > FieldWidth-BodyRadius {
		body.X = FieldWidth - BodyRadius
	}
	if body.Y <= 0 {
		body.Y = 0
		body.VY = 0
	}

	body.Grabbing = keys.Grab
}

func (that *State) stepBall(leftKeys, rightKeys Keys) {
	ball := &that.Ball

	switch ball.HeldBy {
	case SideLeft:
		if !leftKeys.Grab {
			that.releaseBall(&that.Left)
			return
		}
		orbit(ball, &that.Left, SideLeft)
	case SideRight:
		if !rightKeys.Grab {
			that.releaseBall(&that.Right)
			return
		}
		orbit(ball, &that.Right, SideRight)
	default:
		ball.VY += Gravity * Dt
		ball.VX *= BallDamping
		ball.VY *= BallDamping
		ball.X += ball.VX * Dt
		ball.Y += ball.VY * Dt
		that.bounceBall()
	}
}

// orbit keeps a held ball swinging around its holder, constrained to the
// holder's forward hemisphere.
func orbit(ball *Ball, holder *Body, side int) {
	swing := SwingAccel
	if side == SideRight {
		swing = -SwingAccel
	}

	ball.AngularVel += swing * Dt
	if ball.AngularVel > MaxAngularSpeed {
		ball.AngularVel = MaxAngularSpeed
	}
	if ball.AngularVel < -MaxAngularSpeed {
		ball.AngularVel = -MaxAngularSpeed
	}

	ball.Angle += ball.AngularVel * Dt

	min, max := hemisphere(side)
	if ball.Angle < min {
		ball.Angle = min
		ball.AngularVel = -ball.AngularVel * 0.5
	}
	if ball.Angle > max {
		ball.Angle = max
		ball.AngularVel = -ball.AngularVel * 0.5
	}

	centerY := holder.Y + BodyRadius
	ball.X = holder.X + math.Cos(ball.Angle)*OrbitRadius
	ball.Y = centerY + math.Sin(ball.Angle)*OrbitRadius
	ball.VX = -math.Sin(ball.Angle) * ball.AngularVel * OrbitRadius
	ball.VY = math.Cos(ball.Angle) * ball.AngularVel * OrbitRadius
}

// hemisphere bounds the orbit angle to the forward half-circle of a side:
// the left slime swings the ball toward the right goal and vice versa.
func hemisphere(side int) (float64, float64) {
	if side == SideLeft {
		return -halfPi, halfPi
	}
	return halfPi, 3 * halfPi
}

// releaseBall converts the orbit's angular momentum into a launch velocity.
func (that *State) releaseBall(holder *Body) {
	ball := &that.Ball

	ball.VX = -math.Sin(ball.Angle)*ball.AngularVel*OrbitRadius + holder.VX
	ball.VY = math.Cos(ball.Angle)*ball.AngularVel*OrbitRadius + holder.VY

	ball.HeldBy = 0
	ball.AngularVel = 0
	holder.HasBall = false

	clampBallSpeed(ball)
}

func (that *State) bounceBall() {
	ball := &that.Ball

	// Wall bounces skip the goal mouth so goals can be detected.
	if ball.X < BallRadius && ball.Y > GoalHeight {
		ball.X = BallRadius
		ball.VX = -ball.VX * BounceDamping
	}
	if ball.X > FieldWidth-BallRadius && ball.Y > GoalHeight {
		ball.X = FieldWidth - BallRadius
		ball.VX = -ball.VX * BounceDamping
	}
	if ball.Y > FieldHeight-BallRadius {
		ball.Y = FieldHeight - BallRadius
		ball.VY = -ball.VY * BounceDamping
	}
	if ball.Y < BallRadius {
		ball.Y = BallRadius
		ball.VY = -ball.VY * BounceDamping
	}
}

// resolveBodyBall handles one body's interaction with the ball: knocking a
// held ball loose, taking possession, or deflecting a free ball.
func (that *State) resolveBodyBall(side int) {
	ball := &that.Ball
	body := that.body(side)

	centerY := body.Y + BodyRadius
	dx := ball.X - body.X
	dy := ball.Y - centerY
	dist := math.Hypot(dx, dy)

	if ball.HeldBy == side {
		return
	}

	if ball.HeldBy != 0 {
		// Held by the other side: a fast enough impact knocks it loose.
		bodySpeed := math.Hypot(body.VX, body.VY)
		if bodySpeed > KnockLooseSpeed && dist < OrbitRadius+BodyRadius {
			holder := that.body(ball.HeldBy)
			holder.HasBall = false
			ball.HeldBy = 0
			ball.AngularVel = 0
			ball.VX = body.VX
			ball.VY = body.VY
			clampBallSpeed(ball)
		}
		return
	}

	if body.Grabbing && dist < GrabRange {
		ball.HeldBy = side
		body.HasBall = true
		ball.AngularVel = 0
		ball.Angle = clampAngle(math.Atan2(dy, dx), side)
		return
	}

	if dist < BodyRadius+BallRadius {
		// Deflect off the dome: push along the contact normal, carrying some
		// of the body's velocity.
		nx, ny := 0.0, 1.0
		if dist > 0 {
			nx, ny = dx/dist, dy/dist
		}
		ball.VX = nx*DeflectSpeed + body.VX
		ball.VY = ny*DeflectSpeed + body.VY
		ball.X = body.X + nx*(BodyRadius+BallRadius)
		ball.Y = centerY + ny*(BodyRadius+BallRadius)
		clampBallSpeed(ball)
	}
}

func clampAngle(angle float64, side int) float64 {
	if side == SideRight && angle < 0 {
		angle += 2 * math.Pi
	}
	min, max := hemisphere(side)
	if angle < min {
		return min
	}
	if angle > max {
		return max
	}
	return angle
}

func (that *State) body(side int) *Body {
	if side == SideLeft {
		return &that.Left
	}
	return &that.Right
}

// goalScored reports which side scored this tick: a free ball crossing the
// extreme x boundary within the goal-mouth height.
func (that *State) goalScored() int {
	ball := &that.Ball
	if ball.HeldBy != 0 || ball.Y > GoalHeight {
		return 0
	}
	if ball.X < BallRadius {
		return SideRight
	}
	if ball.X > FieldWidth-BallRadius {
		return SideLeft
	}
	return 0
}

// trackGoalDwell advances each body's own-goal timer and returns the side
// awarded a goal when an opponent camps in its own goal third for a second.
func (that *State) trackGoalDwell() int {
	if that.Left.X < GoalThirdWidth {
		that.Left.GoalDwellTicks++
	} else {
		that.Left.GoalDwellTicks = 0
	}

	if that.Right.X > FieldWidth-GoalThirdWidth {
		that.Right.GoalDwellTicks++
	} else {
		that.Right.GoalDwellTicks = 0
	}

	if that.Left.GoalDwellTicks >= OwnGoalDwellTicks {
		return SideRight
	}
	if that.Right.GoalDwellTicks >= OwnGoalDwellTicks {
		return SideLeft
	}
	return 0
}

func (that *State) awardGoal(side int) {
	if side == SideLeft {
		that.ScoreLeft++
	} else {
		that.ScoreRight++
	}

	that.resetPositions()
	that.Phase = PhaseGoalPause
	that.PauseTicks = GoalPauseTicks
}

func (that *State) finish() Event {
	that.Phase = PhaseEnded
	that.RemainingTicks = 0

	switch {
	case that.ScoreLeft > that.ScoreRight:
		that.Winner = SideLeft
	case that.ScoreRight > that.ScoreLeft:
		that.Winner = SideRight
	default:
		that.Draw = true
	}

	return Event{Type: "time_up"}
}

func clampBallSpeed(ball *Ball) {
	speed := math.Hypot(ball.VX, ball.VY)
	if speed <= MaxBallSpeed || speed == 0 {
		return
	}
	scale := MaxBallSpeed / speed
	ball.VX *= scale
	ball.VY *= scale
}
