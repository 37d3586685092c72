package mailer

import (
	htmltpl "html/template"
	texttpl "text/template"
)

const registrationSubject = "Inscrição confirmada - %s"

var registrationHTML = htmltpl.Must(htmltpl.New("registration.html").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Olá, {{.Nome}}!</h2>
  <p>Sua inscrição no workshop foi confirmada.</p>
  <p><strong>Código de inscrição:</strong> {{.CodigoInscricao}}</p>
  <p><strong>Dias:</strong>{{if .ParticipaDia1}} Dia 1{{end}}{{if and .ParticipaDia1 .ParticipaDia2}} e{{end}}{{if .ParticipaDia2}} Dia 2{{end}}</p>
  <p>Guarde este código: ele será pedido no credenciamento e na emissão do certificado.</p>
</body>
</html>
`))

var registrationText = texttpl.Must(texttpl.New("registration.txt").Parse(`Olá, {{.Nome}}!

Sua inscrição no workshop foi confirmada.
Código de inscrição: {{.CodigoInscricao}}
Dias:{{if .ParticipaDia1}} Dia 1{{end}}{{if and .ParticipaDia1 .ParticipaDia2}} e{{end}}{{if .ParticipaDia2}} Dia 2{{end}}

Guarde este código: ele será pedido no credenciamento e na emissão do certificado.
`))
