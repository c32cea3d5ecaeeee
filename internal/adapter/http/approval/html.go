package approval

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kar69-96/agentpay/internal/core/domain"
)

var pageTemplate = template.Must(template.New("approve").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Approve purchase</title>
<style>
  body { font-family: -apple-system, system-ui, sans-serif; background: #f4f5f7; margin: 0; padding: 2rem 1rem; }
  .card { max-width: 24rem; margin: 0 auto; background: #fff; border-radius: 12px; padding: 1.5rem; box-shadow: 0 2px 8px rgba(0,0,0,.08); }
  h1 { font-size: 1.1rem; margin: 0 0 1rem; }
  dl { margin: 0 0 1.5rem; }
  dt { font-size: .75rem; text-transform: uppercase; color: #6b7280; }
  dd { margin: 0 0 .75rem; font-size: 1rem; }
  .amount { font-size: 1.6rem; font-weight: 700; }
  input, textarea { width: 100%; box-sizing: border-box; padding: .6rem; margin: .25rem 0 .75rem; border: 1px solid #d1d5db; border-radius: 8px; font-size: 1rem; }
  button { width: 100%; padding: .7rem; border: 0; border-radius: 8px; font-size: 1rem; cursor: pointer; }
  .approve { background: #059669; color: #fff; }
  .reject { background: #fff; color: #dc2626; border: 1px solid #dc2626; margin-top: .5rem; }
  #status { margin-top: 1rem; font-size: .9rem; }
</style>
</head>
<body>
<div class="card">
  <h1>Approve this purchase?</h1>
  <dl>
    <dt>Merchant</dt><dd>{{.Tx.Merchant}}</dd>
    <dt>Amount</dt><dd class="amount">${{printf "%.2f" .Tx.Amount}}</dd>
    <dt>Description</dt><dd>{{if .Tx.Description}}{{.Tx.Description}}{{else}}&mdash;{{end}}</dd>
    <dt>Transaction</dt><dd><code>{{.Tx.ID}}</code></dd>
  </dl>
  <label for="passphrase">Vault passphrase</label>
  <input id="passphrase" type="password" autocomplete="current-password">
  <button class="approve" onclick="decide('approve')">Approve</button>
  <label for="reason" style="margin-top:1rem;display:block">Reason (optional)</label>
  <input id="reason" type="text">
  <button class="reject" onclick="decide('reject')">Deny</button>
  <div id="status"></div>
</div>
<script>
const token = {{.Token}};
async function decide(action) {
  const status = document.getElementById('status');
  status.textContent = 'Submitting…';
  const body = { token: token };
  if (action === 'approve') body.passphrase = document.getElementById('passphrase').value;
  else body.reason = document.getElementById('reason').value;
  try {
    const res = await fetch('/api/' + action, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body)
    });
    const payload = await res.json();
    if (res.ok) {
      status.textContent = action === 'approve' ? 'Approved. You can close this page.' : 'Denied. You can close this page.';
    } else {
      status.textContent = payload.message || 'Request failed.';
    }
  } catch (err) {
    status.textContent = 'Request failed: ' + err;
  }
}
</script>
</body>
</html>
`))

func renderPage(c *gin.Context, tx *domain.Transaction, token string) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = pageTemplate.Execute(c.Writer, gin.H{"Tx": tx, "Token": token})
}
