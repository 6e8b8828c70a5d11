package gates

import (
	"math"
	"math/cmplx"
)

type paramSpec struct {
	params   int
	controls int
	build    func(p []float64) Matrix
}

var parameterized = map[string]paramSpec{
	"RX":  {params: 1, build: func(p []float64) Matrix { return rx(p[0]) }},
	"RY":  {params: 1, build: func(p []float64) Matrix { return ry(p[0]) }},
	"RZ":  {params: 1, build: func(p []float64) Matrix { return rz(p[0]) }},
	"P":   {params: 1, build: func(p []float64) Matrix { return phase(p[0]) }},
	"U2":  {params: 2, build: func(p []float64) Matrix { return u3(math.Pi/2, p[0], p[1]) }},
	"U3":  {params: 3, build: func(p []float64) Matrix { return u3(p[0], p[1], p[2]) }},
	"CRX": {params: 1, controls: 1, build: func(p []float64) Matrix { return rx(p[0]) }},
	"CRY": {params: 1, controls: 1, build: func(p []float64) Matrix { return ry(p[0]) }},
	"CRZ": {params: 1, controls: 1, build: func(p []float64) Matrix { return rz(p[0]) }},
	"CP":  {params: 1, controls: 1, build: func(p []float64) Matrix { return phase(p[0]) }},
}

func eix(x float64) complex128 { return cmplx.Exp(complex(0, x)) }

func rx(theta float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return NewMatrix(2, c, s, s, c)
}

func ry(theta float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return NewMatrix(2, c, -s, s, c)
}

func rz(theta float64) Matrix {
	return NewMatrix(2, eix(-theta/2), 0, 0, eix(theta/2))
}

func phase(lambda float64) Matrix {
	return NewMatrix(2, 1, 0, 0, eix(lambda))
}

func u3(theta, phi, lambda float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return NewMatrix(2,
		c, -eix(lambda)*s,
		eix(phi)*s, eix(phi+lambda)*c,
	)
}
