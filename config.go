package localplanner

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"golang.org/x/exp/slices"

	"go.viam.com/localplanner/logging"
)

// Defaults mirror a 20 Hz differential-drive setup.
const (
	defaultControllerFrequency = 20.0

	defaultMaxTransVel = 0.55
	defaultMinTransVel = 0.1
	defaultMaxVelX     = 0.55
	defaultMinVelX     = 0.0
	defaultMaxVelY     = 0.1
	defaultMinVelY     = -0.1
	defaultMaxRotVel   = 1.0
	defaultMinRotVel   = 0.4

	defaultAccLimX     = 2.5
	defaultAccLimY     = 2.5
	defaultAccLimTheta = 3.2

	defaultXYGoalTolerance  = 0.1
	defaultYawGoalTolerance = 0.1
	defaultTransStoppedVel  = 0.1
	defaultRotStoppedVel    = 0.1

	defaultSimTime               = 1.7
	defaultSimGranularity        = 0.025
	defaultAngularSimGranularity = 0.1
	defaultVxSamples             = 3
	defaultVySamples             = 10
	defaultVthSamples            = 20

	defaultPathDistanceBias = 32.0
	defaultGoalDistanceBias = 24.0
	defaultObstacleBias     = 0.01

	defaultForwardPointDistance  = 0.325
	defaultCheatFactor           = 1.0
	defaultOscillationResetDist  = 0.05
	defaultOscillationResetAngle = 0.2

	defaultScalingSpeed     = 0.25
	defaultMaxScalingFactor = 0.2
	defaultStopTimeBuffer   = 0.2
)

// Config describes how a Planner samples, scores, and limits motion. Distances are
// meters, angles radians, velocities m/s or rad/s. Build one with DefaultConfig and
// override fields, or decode host attributes with ConfigFromAttributes; a zero
// Config does not validate.
type Config struct {
	// ControllerFrequency is the rate command computation is driven at; its inverse
	// is the control period used for the dynamic window and stopping ramps.
	ControllerFrequency float64 `json:"controller_frequency"`

	MaxTransVel float64 `json:"max_trans_vel"`
	MinTransVel float64 `json:"min_trans_vel"`
	MaxVelX     float64 `json:"max_vel_x"`
	MinVelX     float64 `json:"min_vel_x"`
	MaxVelY     float64 `json:"max_vel_y"`
	MinVelY     float64 `json:"min_vel_y"`
	MaxRotVel   float64 `json:"max_rot_vel"`
	MinRotVel   float64 `json:"min_rot_vel"`

	AccLimX     float64 `json:"acc_lim_x"`
	AccLimY     float64 `json:"acc_lim_y"`
	AccLimTheta float64 `json:"acc_lim_theta"`
	// AccLimTrans bounds how far a sampled translational speed may move from the
	// current one in a single window. Zero disables the bound.
	AccLimTrans float64 `json:"acc_lim_trans"`

	XYGoalTolerance  float64 `json:"xy_goal_tolerance"`
	YawGoalTolerance float64 `json:"yaw_goal_tolerance"`
	TransStoppedVel  float64 `json:"trans_stopped_vel"`
	RotStoppedVel    float64 `json:"rot_stopped_vel"`

	SimTime               float64 `json:"sim_time"`
	SimGranularity        float64 `json:"sim_granularity"`
	AngularSimGranularity float64 `json:"angular_sim_granularity"`
	VxSamples             int     `json:"vx_samples"`
	VySamples             int     `json:"vy_samples"`
	VthSamples            int     `json:"vth_samples"`
	// SampleAccelerations switches the generator from the one-period dynamic window
	// to acceleration-space sampling over the whole horizon.
	SampleAccelerations bool `json:"sample_accelerations"`

	PathDistanceBias float64 `json:"path_distance_bias"`
	GoalDistanceBias float64 `json:"goal_distance_bias"`
	ObstacleBias     float64 `json:"obstacle_bias"`

	ForwardPointDistance float64 `json:"forward_point_distance"`
	// CheatFactor widens the distance from the goal under which heading alignment
	// stops being scored.
	CheatFactor           float64 `json:"cheat_factor"`
	OscillationResetDist  float64 `json:"oscillation_reset_dist"`
	OscillationResetAngle float64 `json:"oscillation_reset_angle"`

	ScalingSpeed      float64 `json:"scaling_speed"`
	MaxScalingFactor  float64 `json:"max_scaling_factor"`
	StopTimeBuffer    float64 `json:"stop_time_buffer"`
	SumObstacleScores bool    `json:"sum_obstacle_scores"`

	PrunePlan bool `json:"prune_plan"`

	// Footprint is the robot outline as [x y] vertices in the body frame, counter
	// clockwise. Empty means a point robot.
	Footprint [][]float64 `json:"footprint"`

	// Diagnostic publication gates. Both default off; candidate collection and grid
	// sweeps only happen when enabled.
	PublishTrajectoryCloud bool `json:"publish_trajectory_cloud"`
	PublishCostGrid        bool `json:"publish_cost_grid"`
}

// DefaultConfig returns a Config with every tunable at its default.
func DefaultConfig() *Config {
	return &Config{
		ControllerFrequency:   defaultControllerFrequency,
		MaxTransVel:           defaultMaxTransVel,
		MinTransVel:           defaultMinTransVel,
		MaxVelX:               defaultMaxVelX,
		MinVelX:               defaultMinVelX,
		MaxVelY:               defaultMaxVelY,
		MinVelY:               defaultMinVelY,
		MaxRotVel:             defaultMaxRotVel,
		MinRotVel:             defaultMinRotVel,
		AccLimX:               defaultAccLimX,
		AccLimY:               defaultAccLimY,
		AccLimTheta:           defaultAccLimTheta,
		XYGoalTolerance:       defaultXYGoalTolerance,
		YawGoalTolerance:      defaultYawGoalTolerance,
		TransStoppedVel:       defaultTransStoppedVel,
		RotStoppedVel:         defaultRotStoppedVel,
		SimTime:               defaultSimTime,
		SimGranularity:        defaultSimGranularity,
		AngularSimGranularity: defaultAngularSimGranularity,
		VxSamples:             defaultVxSamples,
		VySamples:             defaultVySamples,
		VthSamples:            defaultVthSamples,
		PathDistanceBias:      defaultPathDistanceBias,
		GoalDistanceBias:      defaultGoalDistanceBias,
		ObstacleBias:          defaultObstacleBias,
		ForwardPointDistance:  defaultForwardPointDistance,
		CheatFactor:           defaultCheatFactor,
		OscillationResetDist:  defaultOscillationResetDist,
		OscillationResetAngle: defaultOscillationResetAngle,
		ScalingSpeed:          defaultScalingSpeed,
		MaxScalingFactor:      defaultMaxScalingFactor,
		StopTimeBuffer:        defaultStopTimeBuffer,
		PrunePlan:             true,
	}
}

// ConfigFromAttributes decodes a host attribute map over the defaults. Unknown
// attribute keys are warned about and ignored.
func ConfigFromAttributes(logger logging.Logger, attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	md := mapstructure.Metadata{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Metadata: &md,
		Result:   conf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode planner attributes")
	}
	if len(md.Unused) != 0 {
		slices.Sort(md.Unused)
		logger.Warnw("ignoring unknown planner attributes", "keys", md.Unused)
	}
	return conf, nil
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.ControllerFrequency == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "controller_frequency")
	}
	if conf.ControllerFrequency < 0 {
		return goutils.NewConfigValidationError(path, errors.New("controller_frequency must be positive"))
	}
	if conf.SimTime <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("sim_time must be positive"))
	}
	if conf.SimGranularity <= 0 || conf.AngularSimGranularity <= 0 {
		return goutils.NewConfigValidationError(path,
			errors.New("sim_granularity and angular_sim_granularity must be positive"))
	}
	if conf.MaxTransVel <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("max_trans_vel must be positive"))
	}
	if conf.MaxVelX < conf.MinVelX {
		return goutils.NewConfigValidationError(path, errors.New("max_vel_x must be at least min_vel_x"))
	}
	if conf.MaxVelY < conf.MinVelY {
		return goutils.NewConfigValidationError(path, errors.New("max_vel_y must be at least min_vel_y"))
	}
	if conf.MaxRotVel <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("max_rot_vel must be positive"))
	}
	if conf.AccLimX < 0 || conf.AccLimY < 0 || conf.AccLimTheta < 0 || conf.AccLimTrans < 0 {
		return goutils.NewConfigValidationError(path, errors.New("acceleration limits cannot be negative"))
	}
	if conf.XYGoalTolerance <= 0 || conf.YawGoalTolerance <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("goal tolerances must be positive"))
	}
	if conf.TransStoppedVel < 0 || conf.RotStoppedVel < 0 {
		return goutils.NewConfigValidationError(path, errors.New("stopped velocity thresholds cannot be negative"))
	}
	if conf.PathDistanceBias < 0 || conf.GoalDistanceBias < 0 || conf.ObstacleBias < 0 {
		return goutils.NewConfigValidationError(path, errors.New("critic biases cannot be negative"))
	}
	if conf.ForwardPointDistance < 0 {
		return goutils.NewConfigValidationError(path, errors.New("forward_point_distance cannot be negative"))
	}
	if conf.CheatFactor <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("cheat_factor must be positive"))
	}
	if conf.OscillationResetDist < 0 || conf.OscillationResetAngle < 0 {
		return goutils.NewConfigValidationError(path, errors.New("oscillation reset thresholds cannot be negative"))
	}
	if conf.MaxScalingFactor < 0 || conf.ScalingSpeed < 0 || conf.StopTimeBuffer < 0 {
		return goutils.NewConfigValidationError(path, errors.New("obstacle scaling parameters cannot be negative"))
	}
	if _, err := conf.footprintPoints(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// Limits projects the kinodynamic subset of the config.
func (conf *Config) Limits() Limits {
	return Limits{
		MaxTransVel:      conf.MaxTransVel,
		MinTransVel:      conf.MinTransVel,
		MaxVelX:          conf.MaxVelX,
		MinVelX:          conf.MinVelX,
		MaxVelY:          conf.MaxVelY,
		MinVelY:          conf.MinVelY,
		MaxRotVel:        conf.MaxRotVel,
		MinRotVel:        conf.MinRotVel,
		AccLimX:          conf.AccLimX,
		AccLimY:          conf.AccLimY,
		AccLimTheta:      conf.AccLimTheta,
		AccLimTrans:      conf.AccLimTrans,
		XYGoalTolerance:  conf.XYGoalTolerance,
		YawGoalTolerance: conf.YawGoalTolerance,
		TransStoppedVel:  conf.TransStoppedVel,
		RotStoppedVel:    conf.RotStoppedVel,
		PrunePlan:        conf.PrunePlan,
	}
}

func (conf *Config) simPeriod() float64 {
	return 1.0 / conf.ControllerFrequency
}

func (conf *Config) footprintPoints() ([]r3.Vector, error) {
	if len(conf.Footprint) == 0 {
		return nil, nil
	}
	if len(conf.Footprint) < 3 {
		return nil, errors.Errorf("footprint needs at least 3 vertices, got %d", len(conf.Footprint))
	}
	points := make([]r3.Vector, 0, len(conf.Footprint))
	for i, vertex := range conf.Footprint {
		if len(vertex) != 2 {
			return nil, errors.Errorf("footprint vertex %d must be an [x y] pair, got %d values", i, len(vertex))
		}
		points = append(points, r3.Vector{X: vertex[0], Y: vertex[1]})
	}
	return points, nil
}

// criticScales holds the weights critics run with, derived from the configured
// biases and the grid resolution so tuning is stable across map resolutions.
type criticScales struct {
	path      float64
	goal      float64
	goalFront float64
	align     float64
	obstacle  float64
}

func deriveCriticScales(conf *Config, resolution float64) criticScales {
	return criticScales{
		path:      resolution * conf.PathDistanceBias * 0.5,
		goal:      resolution * conf.GoalDistanceBias * 0.5,
		goalFront: resolution * conf.GoalDistanceBias * 0.5,
		align:     resolution * conf.PathDistanceBias * 0.5,
		obstacle:  resolution * conf.ObstacleBias,
	}
}
