// Package payos 校验 PayOS 支付网关回调签名。
//
// 签名算法：将 data 对象按 key 排序后拼接为 key1=value1&key2=value2，
// null 记为空串，数组元素按 key 排序后 JSON 序列化，再以 checksum key 做 HMAC-SHA256（十六进制）。
package payos

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidSignature = errors.New("PayOS 签名无效")
	ErrInvalidPayload   = errors.New("PayOS 回调数据格式错误")
)

// SuccessCode 支付成功码
const SuccessCode = "00"

// WebhookPayload 回调报文
type WebhookPayload struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// WebhookData 回调中的交易数据
type WebhookData struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	AccountNumber       string `json:"accountNumber"`
	Reference           string `json:"reference"`
	TransactionDateTime string `json:"transactionDateTime"`
	Currency            string `json:"currency"`
	PaymentLinkID       string `json:"paymentLinkId"`
	Code                string `json:"code"`
	Desc                string `json:"desc"`
}

// Paid 网关报告支付成功
func (d *WebhookData) Paid() bool {
	return d.Code == SuccessCode
}

// Verifier 回调签名校验器
type Verifier struct {
	checksumKey []byte
}

// NewVerifier 创建校验器
func NewVerifier(checksumKey string) *Verifier {
	return &Verifier{checksumKey: []byte(checksumKey)}
}

// VerifyWebhook 解析回调报文并校验签名
func (v *Verifier) VerifyWebhook(body []byte) (*WebhookData, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(payload.Data) == 0 || payload.Signature == "" {
		return nil, ErrInvalidPayload
	}

	fields, err := decodeObject(payload.Data)
	if err != nil {
		return nil, err
	}

	expected := v.Sign(fields)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(payload.Signature))) {
		return nil, ErrInvalidSignature
	}

	var data WebhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &data, nil
}

// Sign 计算 data 对象的签名
func (v *Verifier) Sign(fields map[string]interface{}) string {
	mac := hmac.New(sha256.New, v.checksumKey)
	mac.Write([]byte(queryString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// decodeObject 解析 JSON 对象，数字保留原始字面量
func decodeObject(raw []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return fields, nil
}

func queryString(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(fields[k]))
	}
	return strings.Join(parts, "&")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if val == "null" || val == "undefined" {
			return ""
		}
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		// 数组元素为对象时 encoding/json 按 key 排序输出
		return stringify(val)
	}
}

// stringify 与网关端 JSON.stringify 一致：不转义 <、>、&，无尾部换行
func stringify(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
