package marketdata

// quandlResponse es la respuesta de /datasets/{db}/{symbol}/data.json.
// Las filas vienen de más reciente a más antigua; los valores pueden ser null.
type quandlResponse struct {
	DatasetData struct {
		ColumnNames []string `json:"column_names"`
		Data        [][]any  `json:"data"`
		StartDate   string   `json:"start_date"`
		EndDate     string   `json:"end_date"`
	} `json:"dataset_data"`
}

// geckoCoin es una entrada de /coins/list.
type geckoCoin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// geckoPrices es la respuesta de /simple/price: id → moneda → precio.
type geckoPrices map[string]map[string]float64
