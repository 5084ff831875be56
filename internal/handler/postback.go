package handler

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"affiliate-link/internal/affiliate"
	"affiliate-link/internal/apperr"
	"affiliate-link/internal/metrics"
	"affiliate-link/internal/model"
	"affiliate-link/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	postbackTokenHeader = "X-Postback-Token"
	maxPostbackBody     = 1 << 20
)

// 佣金绝对值上限，超过后 decimal 列和 JSON 数字都会失真
var maxCommission = decimal.New(1, 15)

// 不随原始回传一起保存的字段
var secretPayloadKeys = []string{"token", "access_token"}

// PostbackHandler 接收联盟网络的转化回传
type PostbackHandler struct {
	store  store.Store
	token  string
	logger *zap.SugaredLogger
}

// NewPostbackHandler 创建处理器实例，token 为空时不校验
func NewPostbackHandler(st store.Store, token string) *PostbackHandler {
	return &PostbackHandler{
		store:  st,
		token:  token,
		logger: zap.S().Named("postback"),
	}
}

// PostbackResponse 回传成功响应
type PostbackResponse struct {
	OK bool `json:"ok" example:"true"`
}

// Receive godoc
// @Summary 接收转化回传
// @Description GET 读取查询参数，POST 读取 JSON 或表单；状态归一化为 click / cart / paid
// @Tags Postback
// @Accept  json
// @Accept  x-www-form-urlencoded
// @Accept  multipart/form-data
// @Produce  json
// @Param   platform    query  string  true   "lazada / shopee"
// @Param   order_id    query  string  false  "订单号"
// @Param   item_name   query  string  false  "商品名"
// @Param   item_id     query  string  false  "商品 ID"
// @Param   qty         query  string  false  "数量，默认 1，范围 0..2147483647"
// @Param   commission  query  string  false  "佣金，默认 0"
// @Param   currency    query  string  false  "币种，默认 THB"
// @Param   status      query  string  false  "上报状态"
// @Param   subid       query  string  false  "subid"
// @Param   link_id     query  string  false  "短码"
// @Param   click_id    query  string  false  "点击 token"
// @Success 200 {object} PostbackResponse "成功响应"
// @Failure 400 {object} ErrorResponse "请求无效"
// @Failure 401 {object} ErrorResponse "token 不匹配"
// @Failure 500 {object} ErrorResponse "存储错误"
// @Router /postback [get]
// @Router /postback [post]
func (h *PostbackHandler) Receive(c *gin.Context) {
	payload, err := readPayload(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if !h.authorized(c, payload) {
		apperr.Abort(c, apperr.Unauthorized("invalid postback token"))
		return
	}

	conv, err := buildConversion(payload)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if err := h.store.CreateConversion(c.Request.Context(), conv); err != nil {
		apperr.Abort(c, apperr.Storage(err))
		return
	}

	metrics.Conversions.WithLabelValues(metrics.PlatformLabel(conv.Platform), string(conv.Status)).Inc()
	h.logger.Infow("转化已记录", "platform", conv.Platform, "order_id", conv.OrderID, "status", conv.Status)
	c.JSON(http.StatusOK, PostbackResponse{OK: true})
}

func (h *PostbackHandler) authorized(c *gin.Context, payload map[string]interface{}) bool {
	if h.token == "" {
		return true
	}
	got := c.GetHeader(postbackTokenHeader)
	if got == "" {
		got = stringValue(payload["token"])
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

// readPayload 按请求方法和 Content-Type 读取回传内容
func readPayload(c *gin.Context) (map[string]interface{}, error) {
	if c.Request.Method != http.MethodPost {
		return valuesToMap(c.Request.URL.Query()), nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPostbackBody)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		return readMultipart(c)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apperr.InvalidInput("invalid request body", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		// 部分联盟网络用 POST 但参数放在查询串里
		return valuesToMap(c.Request.URL.Query()), nil
	}

	switch c.ContentType() {
	case gin.MIMEPOSTForm:
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, apperr.InvalidInput("invalid form body", err)
		}
		return valuesToMap(form), nil
	default:
		payload := map[string]interface{}{}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, apperr.InvalidInput("invalid request body", err)
		}
		return payload, nil
	}
}

// readMultipart 读取 multipart 表单，只取文本字段
func readMultipart(c *gin.Context) (map[string]interface{}, error) {
	if err := c.Request.ParseMultipartForm(maxPostbackBody); err != nil {
		return nil, apperr.InvalidInput("invalid form body", err)
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	if len(form.Value) == 0 {
		return valuesToMap(c.Request.URL.Query()), nil
	}
	return valuesToMap(url.Values(form.Value)), nil
}

// buildConversion 校验并归一化回传字段，超长的文本按列宽截断
func buildConversion(payload map[string]interface{}) (*model.Conversion, error) {
	platform := strings.ToLower(strings.TrimSpace(stringValue(payload["platform"])))
	if platform == "" {
		return nil, apperr.ClientInput("missing platform")
	}

	qty := 1
	if raw := strings.TrimSpace(stringValue(payload["qty"])); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil || !d.IsInteger() || d.Sign() < 0 || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
			return nil, apperr.ClientInput("invalid qty")
		}
		qty = int(d.IntPart())
	}

	commission := model.Money{}
	if raw := strings.TrimSpace(stringValue(payload["commission"])); raw != "" {
		m, err := model.ParseMoney(raw)
		if err != nil || m.Abs().GreaterThanOrEqual(maxCommission) {
			return nil, apperr.ClientInput("invalid commission")
		}
		commission = m
	}

	currency := strings.ToUpper(strings.TrimSpace(stringValue(payload["currency"])))
	if currency == "" {
		currency = model.DefaultCurrency
	}

	raw := make(datatypes.JSONMap, len(payload))
	for k, v := range payload {
		raw[k] = v
	}
	for _, k := range secretPayloadKeys {
		delete(raw, k)
	}

	return &model.Conversion{
		Platform:   clip(platform, 16),
		OrderID:    clip(stringValue(payload["order_id"]), 128),
		ItemName:   stringValue(payload["item_name"]),
		ItemID:     clip(stringValue(payload["item_id"]), 128),
		Qty:        qty,
		Commission: commission,
		Currency:   clip(currency, 8),
		Status:     affiliate.NormalizeStatus(stringValue(payload["status"])),
		SubID:      clip(stringValue(payload["subid"]), 64),
		LinkID:     clipPtr(optionalString(payload["link_id"]), 64),
		ClickID:    clipPtr(optionalString(payload["click_id"]), 64),
		Raw:        raw,
	}, nil
}

func valuesToMap(values url.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		out[k] = items
	}
	return out
}

// stringValue 将 JSON / 表单中的值转成字符串，数组取第一个
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []interface{}:
		if len(t) == 0 {
			return ""
		}
		return stringValue(t[0])
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func optionalString(v interface{}) *string {
	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		return nil
	}
	return &s
}

// clip 按字符截断到最多 n 个 rune
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clipPtr(s *string, n int) *string {
	if s == nil {
		return nil
	}
	v := clip(*s, n)
	return &v
}
