package sensors_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/quad"
	"github.com/davidglickman/drone-6-dof/internal/sensors"
)

func quietParams() sensors.Params {
	p := sensors.DefaultParams()
	p.Gyro.Sigma = 0
	p.Accel.Sigma = 0
	return p
}

var _ = Describe("Suite construction", func() {
	It("accepts the default parameters", func() {
		_, err := sensors.NewSuite(sensors.DefaultParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a UTM zone outside [1, 60]", func() {
		p := sensors.DefaultParams()
		p.Launch.Zone = 61
		_, err := sensors.NewSuite(p, 0.1, 1)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a nonpositive vehicle mass", func() {
		_, err := sensors.NewSuite(sensors.DefaultParams(), 0, 1)
		Expect(err).To(HaveOccurred())
	})

	It("rejects negative noise sigma", func() {
		p := sensors.DefaultParams()
		p.Gyro.Sigma = -0.1
		_, err := sensors.NewSuite(p, 0.1, 1)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Gyro", func() {
	It("reads body rates exactly when noise is off", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		x[quad.StateP] = 0.3
		x[quad.StateQ] = -0.7
		x[quad.StateR] = 1.1

		r := suite.IMU(x, make(dynamo.State, quad.StateDim))
		Expect(r.Gyro[0]).To(Equal(0.3))
		Expect(r.Gyro[1]).To(Equal(-0.7))
		Expect(r.Gyro[2]).To(Equal(1.1))
	})

	It("adds the configured bias", func() {
		p := quietParams()
		p.Gyro.Bias = [3]float64{0.01, -0.02, 0.03}
		suite, err := sensors.NewSuite(p, 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		r := suite.IMU(make(dynamo.State, quad.StateDim), make(dynamo.State, quad.StateDim))
		Expect(r.Gyro[0]).To(BeNumerically("~", 0.01, 1e-15))
		Expect(r.Gyro[1]).To(BeNumerically("~", -0.02, 1e-15))
		Expect(r.Gyro[2]).To(BeNumerically("~", 0.03, 1e-15))
	})

	It("produces identical streams from identical seeds", func() {
		p := sensors.DefaultParams()
		a, err := sensors.NewSuite(p, 0.1, 42)
		Expect(err).NotTo(HaveOccurred())
		b, err := sensors.NewSuite(p, 0.1, 42)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		xdot := make(dynamo.State, quad.StateDim)
		for i := 0; i < 5; i++ {
			Expect(a.IMU(x, xdot)).To(Equal(b.IMU(x, xdot)))
		}
	})

	It("produces different streams from different seeds", func() {
		p := sensors.DefaultParams()
		a, err := sensors.NewSuite(p, 0.1, 1)
		Expect(err).NotTo(HaveOccurred())
		b, err := sensors.NewSuite(p, 0.1, 2)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		xdot := make(dynamo.State, quad.StateDim)
		Expect(a.IMU(x, xdot)).NotTo(Equal(b.IMU(x, xdot)))
	})
})

var _ = Describe("Accelerometer", func() {
	It("reads minus gravity at rest, level", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		r := suite.IMU(make(dynamo.State, quad.StateDim), make(dynamo.State, quad.StateDim))
		Expect(r.Accel[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(r.Accel[1]).To(BeNumerically("~", 0, 1e-12))
		Expect(r.Accel[2]).To(BeNumerically("~", -9.8, 1e-12))
	})

	It("rotates gravity with attitude", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		// Pitched up 90 deg: gravity lies along negative body x, so the
		// specific-force reading flips to positive body x.
		x := make(dynamo.State, quad.StateDim)
		x[quad.StateTheta] = math.Pi / 2

		r := suite.IMU(x, make(dynamo.State, quad.StateDim))
		Expect(r.Accel[0]).To(BeNumerically("~", 9.8, 1e-9))
		Expect(r.Accel[2]).To(BeNumerically("~", 0, 1e-9))
	})

	It("folds in the inertial position rates", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		xdot := make(dynamo.State, quad.StateDim)
		xdot[quad.StateX] = 1.5
		xdot[quad.StateY] = -0.5

		r := suite.IMU(make(dynamo.State, quad.StateDim), xdot)
		Expect(r.Accel[0]).To(BeNumerically("~", 1.5, 1e-12))
		Expect(r.Accel[1]).To(BeNumerically("~", -0.5, 1e-12))
	})

	It("concatenates gyro before accel in Values", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		x[quad.StateP] = 0.25
		r := suite.IMU(x, make(dynamo.State, quad.StateDim))

		vals := r.Values()
		Expect(vals[0]).To(Equal(0.25))
		Expect(vals[5]).To(BeNumerically("~", -9.8, 1e-12))
	})
})

var _ = Describe("Magnetometer", func() {
	It("reads the full field down the body z axis when level", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		m := suite.Magnetometer(make(dynamo.State, quad.StateDim))
		Expect(m[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(m[1]).To(BeNumerically("~", 0, 1e-12))
		Expect(m[2]).To(BeNumerically("~", 14, 1e-12))
	})

	It("preserves field magnitude under any attitude", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		x[quad.StatePhi] = 0.4
		x[quad.StateTheta] = -0.8
		x[quad.StatePsi] = 2.1

		m := suite.Magnetometer(x)
		norm := math.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2])
		Expect(norm).To(BeNumerically("~", 14, 1e-9))
	})
})

var _ = Describe("Barometer", func() {
	It("reads sea-level pressure exactly at zero height", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		p := suite.Barometer(make(dynamo.State, quad.StateDim))
		Expect(p).To(Equal(101325.0))
	})

	It("never reads negative and falls with height", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		prev := suite.Barometer(x)
		for _, h := range []float64{1, 10, 100} {
			x[quad.StateH] = h
			p := suite.Barometer(x)
			Expect(p).To(BeNumerically(">=", 0))
			Expect(p).To(BeNumerically("<=", prev))
			prev = p
		}
	})
})

var _ = Describe("GPS", func() {
	It("resolves the launch reference to a plausible geodetic fix", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		fix := suite.GPS(make(dynamo.State, quad.StateDim))
		Expect(fix.Lat).To(BeNumerically(">", 0))
		Expect(fix.Lat).To(BeNumerically("<", 84))
		Expect(fix.Lon).To(BeNumerically(">", -180))
		Expect(fix.Lon).To(BeNumerically("<", 180))
	})

	It("offsets northing by inertial x and altitude by height", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		x[quad.StateX] = 25
		x[quad.StateH] = 4

		fix := suite.GPS(x)
		Expect(fix.Northing).To(Equal(3539643.0 + 25))
		Expect(fix.Alt).To(Equal(4.0))
	})

	It("folds height into the easting offset", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		x[quad.StateY] = 3
		x[quad.StateH] = 4

		fix := suite.GPS(x)
		Expect(fix.Easting).To(Equal(664026.0 + 3 + 4))
	})
})

var _ = Describe("Sample", func() {
	It("flattens in store column order", func() {
		suite, err := sensors.NewSuite(quietParams(), 0.1, 1)
		Expect(err).NotTo(HaveOccurred())

		x := make(dynamo.State, quad.StateDim)
		x[quad.StateP] = 0.5
		rec := suite.Sample(x, make(dynamo.State, quad.StateDim))

		flat := rec.Flatten()
		Expect(flat).To(HaveLen(15))
		Expect(flat[0]).To(Equal(0.5))      // gyro x
		Expect(flat[9]).To(Equal(rec.Baro)) // baro after mag
	})
})
