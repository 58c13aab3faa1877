// default.go — встроенный шаблон контракта по умолчанию (pt-BR).
// Используется, когда у tenant-а нет собственного шаблона.
package template

// DefaultTemplate возвращает встроенный шаблон контракта.
// Самодостаточный HTML со встроенными стилями; вторая страница
// начинается с page-break, блок подсказки отмечает место подписи.
func DefaultTemplate() string {
	return defaultContractTemplate
}

const defaultContractTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; margin: 36px; }
  h1 { font-size: 18px; text-align: center; margin-bottom: 4px; }
  h2 { font-size: 13px; border-bottom: 1px solid #999; padding-bottom: 3px; margin-top: 22px; }
  .meta { text-align: center; color: #666; font-size: 10px; margin-bottom: 24px; }
  table.dados { width: 100%; border-collapse: collapse; margin: 8px 0 16px; }
  table.dados td { border: 1px solid #ccc; padding: 5px 8px; }
  table.dados td.rotulo { background: #f2f2f2; width: 34%; font-weight: bold; }
  .clausulas { text-align: justify; line-height: 1.5; }
  .clausulas p { margin: 6px 0; }
  .quebra { page-break-before: always; }
  .assinatura-box { margin-top: 60px; border: 1px dashed #888; height: 110px;
    width: 300px; margin-left: auto; padding: 8px; color: #999; font-size: 10px; }
  .rodape { margin-top: 30px; font-size: 10px; color: #777; text-align: center; }
</style>
</head>
<body>
  <h1>CONTRATO DE LOCAÇÃO DE VEÍCULO</h1>
  <div class="meta">{{.tenant_name}} — emitido em {{.hoje}}</div>

  <h2>1. Locatário</h2>
  <table class="dados">
    <tr><td class="rotulo">Nome</td><td>{{.cliente_nome}}</td></tr>
    <tr><td class="rotulo">Documento</td><td>{{.cliente_doc}}</td></tr>
    <tr><td class="rotulo">País</td><td>{{.cliente_pais}}</td></tr>
    <tr><td class="rotulo">Voo</td><td>{{.voo_numero}}</td></tr>
  </table>

  <h2>2. Veículo</h2>
  <table class="dados">
    <tr><td class="rotulo">Marca / Modelo</td><td>{{.carro_marca}} {{.carro_modelo}}</td></tr>
    <tr><td class="rotulo">Ano</td><td>{{.carro_ano}}</td></tr>
    <tr><td class="rotulo">Cor</td><td>{{.carro_cor}}</td></tr>
  </table>

  <h2>3. Período e valor</h2>
  <table class="dados">
    <tr><td class="rotulo">Retirada</td><td>{{.data_inicio}}</td></tr>
    <tr><td class="rotulo">Devolução</td><td>{{.data_fim}}</td></tr>
    <tr><td class="rotulo">Valor total</td><td>{{money .valor_total}}</td></tr>
  </table>

  <h2>4. Condições gerais</h2>
  <div class="clausulas">
    <p>4.1. O locatário declara ter recebido o veículo em perfeitas condições
    de uso e conservação, responsabilizando-se pela sua devolução no mesmo
    estado, ressalvado o desgaste natural.</p>
    <p>4.2. O veículo destina-se exclusivamente ao uso particular do locatário,
    sendo vedada a sublocação, o transporte remunerado de pessoas ou cargas e a
    condução por terceiros não autorizados.</p>
    <p>4.3. Multas de trânsito e demais penalidades decorrentes do período de
    locação são de responsabilidade integral do locatário.</p>
    <p>4.4. A devolução após o horário contratado sujeita o locatário à
    cobrança de diária adicional, conforme tabela vigente da locadora.</p>
  </div>

  <div class="quebra"></div>

  <h2>5. Aceite e assinatura</h2>
  <div class="clausulas">
    <p>O locatário declara ter lido e aceito integralmente as condições deste
    contrato, firmando-o por meio de assinatura eletrônica capturada na data
    indicada acima.</p>
  </div>

  <div class="assinatura-box">Assinatura do locatário</div>

  <div class="rodape">{{.tenant_name}} — contrato de locação nº da reserva conforme registro interno.</div>
</body>
</html>
`
