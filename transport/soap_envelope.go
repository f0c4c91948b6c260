package transport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/goliatone/go-soasecurity/core"
)

const (
	soap11EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	soap12EnvelopeNamespace = "http://www.w3.org/2003/05/soap-envelope"

	soap11ContentType = "text/xml; charset=utf-8"
	soap12ContentType = "application/soap+xml; charset=utf-8"

	// DefaultServiceNamespace is the target namespace of the security service
	// contract.
	DefaultServiceNamespace = "http://tempuri.org/"

	requestTokenOperation = "RequestToken"
)

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soap:Envelope"`
	SOAPNS  string      `xml:"xmlns:soap,attr"`
	Body    requestBody `xml:"soap:Body"`
}

type requestBody struct {
	Call requestTokenCall
}

type requestTokenCall struct {
	XMLName  xml.Name `xml:"RequestToken"`
	XMLNS    string   `xml:"xmlns,attr"`
	User     string   `xml:"user"`
	Password string   `xml:"password"`
}

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault    *soapFault            `xml:"Fault"`
	Response *requestTokenResponse `xml:"RequestTokenResponse"`
}

type requestTokenResponse struct {
	Result *securityData `xml:"RequestTokenResult"`
}

type securityData struct {
	Token              string `xml:"Token"`
	MessageStatus      int    `xml:"MessageStatus"`
	MessageDescription string `xml:"MessageDescription"`
}

// soapFault covers both envelope versions: 1.1 uses faultcode/faultstring,
// 1.2 uses Code/Value and Reason/Text.
type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
	Code        string `xml:"Code>Value"`
	Reason      string `xml:"Reason>Text"`
}

func (f soapFault) code() string {
	if code := strings.TrimSpace(f.FaultCode); code != "" {
		return code
	}
	return strings.TrimSpace(f.Code)
}

func (f soapFault) reason() string {
	if reason := strings.TrimSpace(f.FaultString); reason != "" {
		return reason
	}
	return strings.TrimSpace(f.Reason)
}

func envelopeNamespace(protocol core.ProtocolVersion) string {
	if protocol == core.ProtocolLegacy {
		return soap11EnvelopeNamespace
	}
	return soap12EnvelopeNamespace
}

func soapAction(namespace string) string {
	return strings.TrimRight(namespace, "/") + "/" + requestTokenOperation
}

// contentHeaders returns the protocol specific content type plus the legacy
// SOAPAction header when required.
func contentHeaders(protocol core.ProtocolVersion, namespace string) map[string]string {
	action := soapAction(namespace)
	if protocol == core.ProtocolLegacy {
		return map[string]string{
			"Content-Type": soap11ContentType,
			"SOAPAction":   `"` + action + `"`,
		}
	}
	return map[string]string{
		"Content-Type": fmt.Sprintf("%s; action=%q", soap12ContentType, action),
	}
}

func encodeRequestToken(protocol core.ProtocolVersion, namespace string, user string, password string) ([]byte, error) {
	envelope := requestEnvelope{
		SOAPNS: envelopeNamespace(protocol),
		Body: requestBody{Call: requestTokenCall{
			XMLNS:    namespace,
			User:     user,
			Password: password,
		}},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(envelope); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRequestTokenResponse(body []byte) (responseBody, error) {
	var envelope responseEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return responseBody{}, err
	}
	return envelope.Body, nil
}
