// Package sensors derives synthetic sensor readings from the true vehicle
// state: IMU, magnetometer, barometer and GPS. Each model is a pure
// function of its inputs apart from the seeded noise stream.
package sensors

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/im7mortal/UTM"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/quad"
	"github.com/davidglickman/drone-6-dof/internal/rotation"
)

const boltzmann = 1.38e-23 // J/K

// NoiseParams is a per-axis constant bias plus zero-mean Gaussian noise.
type NoiseParams struct {
	Sigma float64
	Bias  [3]float64
}

// LaunchRef anchors the GPS model: a projected UTM coordinate plus zone,
// converted to geodetic latitude/longitude once at suite construction.
type LaunchRef struct {
	Easting    float64
	Northing   float64
	Zone       int
	ZoneLetter string
	Altitude   float64 // above ellipsoid, m
}

// Params configures every sensor model. GravityRef is the gravity constant
// the sensor models were tuned with; it intentionally differs from the
// dynamics' gravity in the reference data.
type Params struct {
	Gyro  NoiseParams
	Accel NoiseParams

	MagField     [3]float64 // reference field direction, inertial frame
	MagMagnitude float64    // local field strength, uT

	SeaLevelPressure float64 // Pa
	Temperature      float64 // K
	GravityRef       float64 // m/s^2

	Launch LaunchRef
}

func DefaultParams() Params {
	return Params{
		Gyro:             NoiseParams{Sigma: 0.1},
		Accel:            NoiseParams{Sigma: 0.1},
		MagField:         [3]float64{0, 0, 1},
		MagMagnitude:     14,
		SeaLevelPressure: 101325,
		Temperature:      298,
		GravityRef:       9.8,
		Launch: LaunchRef{
			Easting:    664026,
			Northing:   3539643,
			Zone:       36,
			ZoneLetter: "N",
			Altitude:   0,
		},
	}
}

func (p Params) Validate() error {
	switch {
	case p.Launch.Zone < 1 || p.Launch.Zone > 60:
		return fmt.Errorf("sensors: UTM zone must be in [1, 60], got %d", p.Launch.Zone)
	case p.SeaLevelPressure <= 0:
		return fmt.Errorf("sensors: sea-level pressure must be positive, got %g", p.SeaLevelPressure)
	case p.Temperature <= 0:
		return fmt.Errorf("sensors: temperature must be positive, got %g", p.Temperature)
	case p.GravityRef <= 0:
		return fmt.Errorf("sensors: gravity must be positive, got %g", p.GravityRef)
	case p.Gyro.Sigma < 0 || p.Accel.Sigma < 0:
		return fmt.Errorf("sensors: noise sigma must be nonnegative")
	}
	return nil
}

// IMUReading is gyro first, then accelerometer, matching the wire order of
// the reference output.
type IMUReading struct {
	Gyro  [3]float64 // rad/s
	Accel [3]float64 // m/s^2
}

// Values returns the 6-element concatenation (gyro, accel).
func (r IMUReading) Values() [6]float64 {
	return [6]float64{
		r.Gyro[0], r.Gyro[1], r.Gyro[2],
		r.Accel[0], r.Accel[1], r.Accel[2],
	}
}

type GPSReading struct {
	Lat      float64
	Lon      float64
	Alt      float64
	Northing float64
	Easting  float64
}

// Record collects one step's worth of sensor output.
type Record struct {
	IMU  IMUReading
	Mag  [3]float64
	Baro float64 // Pa
	GPS  GPSReading
}

// Flatten lays the record out as gyro, accel, mag, baro, then GPS, the
// column order used by the run store.
func (r Record) Flatten() []float64 {
	return []float64{
		r.IMU.Gyro[0], r.IMU.Gyro[1], r.IMU.Gyro[2],
		r.IMU.Accel[0], r.IMU.Accel[1], r.IMU.Accel[2],
		r.Mag[0], r.Mag[1], r.Mag[2],
		r.Baro,
		r.GPS.Lat, r.GPS.Lon, r.GPS.Alt, r.GPS.Northing, r.GPS.Easting,
	}
}

// Suite evaluates all sensor models against a true state. Each run owns
// its own Suite so noise streams never cross between runs.
type Suite struct {
	params      Params
	vehicleMass float64
	lat, lon    float64
	rng         *rand.Rand
}

// NewSuite validates the configuration and resolves the launch reference
// to geodetic coordinates. A malformed zone is a configuration error here,
// never a per-call fault.
func NewSuite(p Params, vehicleMass float64, seed int64) (*Suite, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if vehicleMass <= 0 {
		return nil, fmt.Errorf("sensors: vehicle mass must be positive, got %g", vehicleMass)
	}

	lat, lon, err := UTM.ToLatLon(p.Launch.Easting, p.Launch.Northing, p.Launch.Zone, p.Launch.ZoneLetter)
	if err != nil {
		return nil, fmt.Errorf("sensors: launch reference: %w", err)
	}

	return &Suite{
		params:      p,
		vehicleMass: vehicleMass,
		lat:         lat,
		lon:         lon,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// IMU models gyro and accelerometer output. The gyro reads body rates plus
// bias and Gaussian noise. The accelerometer reads the inertial-position
// rates from xdot minus gravity rotated into the body frame, plus bias and
// noise; feeding position rates rather than true acceleration is inherited
// from the reference model.
func (s *Suite) IMU(x, xdot dynamo.State) IMUReading {
	var r IMUReading
	for i := 0; i < 3; i++ {
		r.Gyro[i] = x[quad.StateP+i] + s.params.Gyro.Bias[i] + s.params.Gyro.Sigma*s.rng.NormFloat64()
	}

	dcm := rotation.InertialToBody(x[quad.StatePhi], x[quad.StateTheta], x[quad.StatePsi])
	gBody := rotation.ToBody(dcm, [3]float64{0, 0, s.params.GravityRef})
	for i := 0; i < 3; i++ {
		r.Accel[i] = xdot[quad.StateX+i] - gBody[i] + s.params.Accel.Bias[i] + s.params.Accel.Sigma*s.rng.NormFloat64()
	}
	return r
}

// Magnetometer rotates the fixed reference field into the body frame and
// scales by the local field strength. No noise in the reference behavior.
func (s *Suite) Magnetometer(x dynamo.State) [3]float64 {
	dcm := rotation.InertialToBody(x[quad.StatePhi], x[quad.StateTheta], x[quad.StatePsi])
	field := rotation.ToBody(dcm, s.params.MagField)
	for i := range field {
		field[i] *= s.params.MagMagnitude
	}
	return field
}

// Barometer evaluates p(h) = p0 * exp(-m*g*h / (k*T)) at the current
// height above sea level. The mass scale is the vehicle mass, inherited
// verbatim from the reference parameterization.
func (s *Suite) Barometer(x dynamo.State) float64 {
	h := s.params.Launch.Altitude + x[quad.StateH]
	exponent := -s.vehicleMass * s.params.GravityRef * h / (boltzmann * s.params.Temperature)
	return s.params.SeaLevelPressure * math.Exp(exponent)
}

// GPS offsets the launch reference by the vehicle's inertial position.
// The easting offset folds in altitude, matching the reference output
// field for field.
func (s *Suite) GPS(x dynamo.State) GPSReading {
	return GPSReading{
		Lat:      s.lat,
		Lon:      s.lon,
		Alt:      s.params.Launch.Altitude + x[quad.StateH],
		Northing: s.params.Launch.Northing + x[quad.StateX],
		Easting:  s.params.Launch.Easting + x[quad.StateY] + s.params.Launch.Altitude + x[quad.StateH],
	}
}

// Sample evaluates every sensor model against the just-integrated state
// and its derivative.
func (s *Suite) Sample(x, xdot dynamo.State) Record {
	return Record{
		IMU:  s.IMU(x, xdot),
		Mag:  s.Magnetometer(x),
		Baro: s.Barometer(x),
		GPS:  s.GPS(x),
	}
}
