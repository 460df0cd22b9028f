package scheduling

import (
	"math"
	"time"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/infra/logger"
)

// Config tunes the engine's discretization and the loop stopping criterion.
type Config struct {
	SocSteps          int     `json:"soc_steps"`
	PowerSteps        int     `json:"power_steps"`
	LoopTolerance     float64 `json:"loop_tolerance"`
	LoopMaxIterations int     `json:"loop_max_iterations"`
}

// SetDefaults applies the default engine tuning.
func (c *Config) SetDefaults() {
	if c.SocSteps <= 0 {
		c.SocSteps = 100
	}
	if c.PowerSteps <= 0 {
		c.PowerSteps = 10
	}
	if c.LoopTolerance <= 0 {
		c.LoopTolerance = 1e-3
	}
	if c.LoopMaxIterations <= 0 {
		c.LoopMaxIterations = 10
	}
}

// DPEngine schedules storage with dynamic programming on a discretized energy
// content grid, one calendar day at a time, and clears the internal market on
// the resulting net loads.
type DPEngine struct {
	cfg Config
	log logger.Logger
}

// NewDPEngine builds an engine with the given tuning.
func NewDPEngine(cfg Config, log logger.Logger) *DPEngine {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &DPEngine{cfg: cfg, log: log}
}

// scheduleMeter computes one meter's operation against the current LEM price
// vector. The meter buys at the cheaper of its retail tariff and the internal
// price plus grid access, and sells at the better of its retail rate and the
// internal price.
func (e *DPEngine) scheduleMeter(spec MeterSpec, horizon []time.Time, lLem, lGrid []float64) *MeterSchedule {
	n := len(horizon)
	sched := &MeterSchedule{
		NetLoad:       make([]float64, n),
		Surplus:       make([]float64, n),
		Supplied:      make([]float64, n),
		LemBought:     make([]float64, n),
		LemSold:       make([]float64, n),
		BessCharge:    make([]float64, n),
		BessDischarge: make([]float64, n),
		BessContent:   make([]float64, n),
	}

	effBuy := make([]float64, n)
	effSell := make([]float64, n)
	for t := 0; t < n; t++ {
		// a zero price marks a step without an internal market
		effBuy[t] = spec.LBuy[t]
		if lLem[t] > 0 {
			effBuy[t] = math.Min(effBuy[t], lLem[t]+lGrid[t])
		}
		effSell[t] = math.Max(spec.LSell[t], lLem[t])
	}

	if spec.Storage == nil || spec.Storage.EBn <= 0 || spec.Storage.PMax <= 0 {
		for t := 0; t < n; t++ {
			sched.NetLoad[t] = spec.EC[t] - spec.EG[t]
		}
		return sched
	}

	// optimize each calendar day independently, restarting from the
	// battery's initial content
	start := 0
	for t := 1; t <= n; t++ {
		if t == n || !sameDay(horizon[t], horizon[start]) {
			e.optimizeDay(spec, sched, effBuy, effSell, start, t)
			start = t
		}
	}

	for t := 0; t < n; t++ {
		sched.NetLoad[t] = spec.EC[t] - spec.EG[t] + sched.BessCharge[t] - sched.BessDischarge[t]
	}
	return sched
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// optimizeDay runs the DP over [from, to) and writes the chosen charge,
// discharge and content series into sched.
func (e *DPEngine) optimizeDay(spec MeterSpec, sched *MeterSchedule, effBuy, effSell []float64, from, to int) {
	s := spec.Storage
	eMin := s.SoCMin / 100 * s.EBn
	eMax := s.SoCMax / 100 * s.EBn
	effBC := s.EffBC / 100
	effBD := s.EffBD / 100
	if eMax <= eMin || effBC <= 0 || effBD <= 0 {
		return
	}
	// grid-side energy moved in one step, bounded by the inverter and the
	// contracted power left after the raw net load
	stepEnergy := s.PMax * model.DeltaT
	capEnergy := spec.ContractedPower * model.DeltaT

	socSteps := e.cfg.SocSteps
	nStates := socSteps + 1
	toIdx := func(content float64) int {
		if content <= eMin {
			return 0
		}
		if content >= eMax {
			return socSteps
		}
		return int(math.Round((content - eMin) / (eMax - eMin) * float64(socSteps)))
	}
	toContent := func(idx int) float64 {
		if idx <= 0 {
			return eMin
		}
		if idx >= socSteps {
			return eMax
		}
		return eMin + float64(idx)/float64(socSteps)*(eMax-eMin)
	}

	negInf := math.Inf(-1)
	steps := to - from

	// value[k][i] is the best achievable negated cost of arriving in state i
	// after k steps; prev/act record the transition that realized it
	value := make([][]float64, steps+1)
	for k := range value {
		value[k] = make([]float64, nStates)
		for i := range value[k] {
			value[k][i] = negInf
		}
	}
	initIdx := toIdx(clamp(0, eMin, eMax))
	value[0][initIdx] = 0

	prev := make([][]int, steps)
	act := make([][]float64, steps)
	for k := range prev {
		prev[k] = make([]int, nStates)
		act[k] = make([]float64, nStates)
		for i := range prev[k] {
			prev[k][i] = -1
		}
	}

	// candidate grid-side actions: negative discharges, positive charges
	actStep := stepEnergy / float64(e.cfg.PowerSteps)
	actions := make([]float64, 0, 2*e.cfg.PowerSteps+1)
	for k := -e.cfg.PowerSteps; k <= e.cfg.PowerSteps; k++ {
		actions = append(actions, float64(k)*actStep)
	}

	for t := from; t < to; t++ {
		k := t - from
		raw := spec.EC[t] - spec.EG[t]
		for idx := 0; idx < nStates; idx++ {
			if math.IsInf(value[k][idx], -1) {
				continue
			}
			content := toContent(idx)
			// idling stays feasible regardless of the contracted power
			idle := value[k][idx] + stepCost(raw, effBuy[t], effSell[t])
			if idle > value[k+1][idx] {
				value[k+1][idx] = idle
				prev[k][idx] = idx
				act[k][idx] = 0
			}
			for _, a := range actions {
				if a == 0 {
					continue
				}
				charge, discharge := 0.0, 0.0
				nc := content
				if a > 0 {
					charge = math.Min(a, (eMax-content)/effBC)
					nc = content + charge*effBC
				} else {
					discharge = math.Min(-a, (content-eMin)*effBD)
					nc = content - discharge/effBD
				}
				net := raw + charge - discharge
				if math.Abs(net) > capEnergy {
					continue
				}
				c := value[k][idx] + stepCost(net, effBuy[t], effSell[t]) - s.DegCost*(charge+discharge)
				ni := toIdx(nc)
				if c > value[k+1][ni] {
					value[k+1][ni] = c
					prev[k][ni] = idx
					act[k][ni] = a
				}
			}
		}
	}

	// trace the best terminal state back to the start of the day
	best := initIdx
	for idx := 0; idx < nStates; idx++ {
		if value[steps][idx] > value[steps][best] {
			best = idx
		}
	}
	plan := make([]float64, steps)
	cur := best
	for k := steps - 1; k >= 0; k-- {
		plan[k] = act[k][cur]
		cur = prev[k][cur]
	}

	// replay the plan with continuous content
	content := toContent(initIdx)
	for t := from; t < to; t++ {
		a := plan[t-from]
		if a > 0 {
			charge := math.Min(a, (eMax-content)/effBC)
			sched.BessCharge[t] = charge
			content += charge * effBC
		} else if a < 0 {
			discharge := math.Min(-a, (content-eMin)*effBD)
			sched.BessDischarge[t] = discharge
			content -= discharge / effBD
		}
		content = clamp(content, eMin, eMax)
		sched.BessContent[t] = content
	}
}

// stepCost is the negated operation cost of one step, so the DP can maximize.
func stepCost(net, effBuy, effSell float64) float64 {
	if net > 0 {
		return -net * effBuy
	}
	return -net * effSell
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
