package estimate

// Params holds the scalar Kalman filter tuning.
type Params struct {
	// InitialEstimate is the prior wait in seconds before any measurement.
	InitialEstimate float64 `json:"initial_estimate"`
	// InitialCovariance is the prior uncertainty.
	InitialCovariance float64 `json:"initial_covariance"`
	// ProcessVar (Q) is added to the covariance on every step.
	ProcessVar float64 `json:"process_var"`
	// MeasurementVar (R) is the noise of a single observed wait.
	MeasurementVar float64 `json:"measurement_var"`
}

// DefaultParams returns the standard tuning: 600s prior, P=500, Q=100, R=200.
func DefaultParams() Params {
	return Params{
		InitialEstimate:   600,
		InitialCovariance: 500,
		ProcessVar:        100,
		MeasurementVar:    200,
	}
}

// State is the filter estimate and its covariance.
type State struct {
	Estimate   float64 `json:"estimate"`
	Covariance float64 `json:"covariance"`
}

// Initial returns the prior state.
func (p Params) Initial() State {
	return State{Estimate: p.InitialEstimate, Covariance: p.InitialCovariance}
}

// Update folds one measurement z into s.
func Update(s State, z float64, p Params) State {
	predicted := s.Covariance + p.ProcessVar
	gain := predicted / (predicted + p.MeasurementVar)
	return State{
		Estimate:   s.Estimate + gain*(z-s.Estimate),
		Covariance: (1 - gain) * predicted,
	}
}

// Fold runs the filter over measurements in order, starting from the prior.
func Fold(measurements []float64, p Params) State {
	s := p.Initial()
	for _, z := range measurements {
		s = Update(s, z, p)
	}
	return s
}
