package traffic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityBands(t *testing.T) {
	cases := []struct {
		ttc  float64
		want string
	}{
		{0, SeverityHigh},
		{0.49, SeverityHigh},
		{0.5, SeverityMedium},
		{0.99, SeverityMedium},
		{1.0, SeverityLow},
		{1.49, SeverityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, severity(tc.ttc, 1.5), "ttc=%v", tc.ttc)
	}
}

func TestRoadUser(t *testing.T) {
	assert.Equal(t, "pedestrian", RoadUser("person"))
	assert.Equal(t, "cyclist", RoadUser("bike"))
	assert.Equal(t, "vehicle", RoadUser("car"))
	assert.Equal(t, "vehicle", RoadUser(""))
}
