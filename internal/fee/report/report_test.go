package report

import (
	"bytes"
	"testing"
	"time"

	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	"github.com/smallbiznis/domainledger/internal/pricing"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleMatrix() Matrix {
	registrars := []registrardomain.Registrar{
		{ID: 1, Name: "Dynadot", Currency: "USD"},
		{ID: 2, Name: "Porkbun", Currency: "USD"},
	}
	fees := []feedomain.Fee{
		{RegistrarID: 1, TLD: "com", RegisterPrice: pricing.Ptr(10.99), RenewPrice: pricing.Ptr(11.99)},
		{RegistrarID: 2, TLD: "com", RegisterPrice: pricing.Ptr(9.73), RenewPrice: pricing.Ptr(10.37), TransferPrice: pricing.Ptr(9.73)},
		{RegistrarID: 2, TLD: "app", RegisterPrice: pricing.Ptr(14.93)},
		{RegistrarID: 9, TLD: "xyz", RegisterPrice: pricing.Ptr(1)},
	}
	return BuildMatrix(registrars, fees)
}

func TestBuildMatrix(t *testing.T) {
	m := sampleMatrix()
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "app", m.Rows[0].TLD)
	assert.Nil(t, m.Rows[0].Cells[0])
	assert.Equal(t, 1, m.Rows[0].Cheapest)

	com := m.Rows[1]
	assert.Equal(t, "com", com.TLD)
	assert.Equal(t, 1, com.Cheapest)
	assert.Equal(t, 10.99, *com.Cells[0].Register)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(sampleMatrix(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	raw := excelize.Options{RawCellValue: true}
	header, err := f.GetCellValue(sheetName, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Dynadot (USD)", header)

	sub, err := f.GetCellValue(sheetName, "E2")
	require.NoError(t, err)
	assert.Equal(t, "Register", sub)

	tld, err := f.GetCellValue(sheetName, "A4")
	require.NoError(t, err)
	assert.Equal(t, ".com", tld)

	price, err := f.GetCellValue(sheetName, "E4", raw)
	require.NoError(t, err)
	assert.Equal(t, "9.73", price)

	empty, err := f.GetCellValue(sheetName, "B3", raw)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(sampleMatrix(), time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "-", money(nil, "USD"))
	assert.Equal(t, "IDR 150000.00", money(pricing.Ptr(150000), "IDR"))
}
