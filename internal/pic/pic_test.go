package pic

import "testing"

func TestDataPortAndBit(t *testing.T) {
	tests := []struct {
		irq      uint8
		wantPort uint16
		wantBit  uint8
	}{
		{0, masterData, 0x01},
		{2, masterData, 0x04},
		{7, masterData, 0x80},
		{8, slaveData, 0x01},
		{9, slaveData, 0x02},
		{15, slaveData, 0x80},
	}
	for _, tc := range tests {
		port, bit := dataPortAndBit(tc.irq)
		if port != tc.wantPort || bit != tc.wantBit {
			t.Errorf("dataPortAndBit(%d) = (0x%x, 0x%x), want (0x%x, 0x%x)",
				tc.irq, port, bit, tc.wantPort, tc.wantBit)
		}
	}
}
