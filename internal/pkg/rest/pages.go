package rest

// Шаблон страницы формы. Результат, если есть, выводится под кнопкой.
var formTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>img2img API</title>
    <meta charset="utf-8">
    <style>
        body { font-family: sans-serif; margin: 0; display: flex; }
        aside { width: 320px; padding: 16px; background: #f0f2f6; font-size: 14px; }
        main { flex: 1; padding: 16px 32px; }
        .columns { display: flex; gap: 32px; }
        .columns > div { flex: 1; }
        label { display: block; margin-top: 12px; }
        input[type=text], input[type=number] { width: 100%; }
        input[type=range] { width: 80%; }
        .error { color: #b00020; background: #fde7e9; padding: 8px; margin: 12px 0; }
        figure { margin: 16px 0; }
        figure img { width: 100%; }
        .previews img { border: 1px solid #ccc; margin-right: 8px; }
    </style>
</head>
<body>
<aside>
    <h1>Img2Img Inpainting Web Application</h1>
    <h3>Overview</h3>
    <p>This application provides a web-based interface for performing image-to-image (img2img) inpainting using Stable Diffusion.
       Upload an initial image and a mask, set the parameters and generate a new image based on these inputs.</p>
    <h3>Workflow</h3>
    <ul>
        <li>Enter the Stable Diffusion WebUI API URL</li>
        <li>Upload an initial image and a mask image</li>
        <li>Adjust the parameters of the inpainting process</li>
        <li>The server sends one POST request to the WebUI API</li>
        <li>The returned image is decoded and displayed below the form</li>
    </ul>
    <h3>Technical Notes</h3>
    <ul>
        <li>Image data is sent to the backend base64 encoded.</li>
        <li>Only one request is processed at a time.</li>
        <li>The Stable Diffusion WebUI must be running with the <code>--api</code> flag enabled.</li>
    </ul>
    <p><a href="/status">Status</a></p>
</aside>
<main>
    <h1>Img2Img Inpainting Web App</h1>
    {{with .Form}}
    <form method="post" action="/run" enctype="multipart/form-data"
          onsubmit="var b = this.querySelector('button[type=submit]'); if (b.disabled) { return false; } b.disabled = true; b.textContent = 'Processing...';">
        <label>Enter the WebUI API URL:
            <input type="text" name="endpoint" value="{{.Endpoint}}">
        </label>
        <label>Enter your prompt:
            <input type="text" name="prompt" value="{{.Prompt}}">
        </label>

        <div class="columns">
            <div>
                <label>Steps: <output id="steps_out">{{.Steps}}</output>
                    <input type="range" name="steps" value="{{.Steps}}" min="{{.Limits.MinSteps}}" max="{{.Limits.MaxSteps}}" step="1"
                           oninput="steps_out.value = this.value">
                </label>
                <label>CFG Scale: <output id="cfg_out">{{.CfgScale}}</output>
                    <input type="range" name="cfg_scale" value="{{.CfgScale}}" min="{{.Limits.MinCfgScale}}" max="{{.Limits.MaxCfgScale}}" step="{{.Limits.CfgScaleStep}}"
                           oninput="cfg_out.value = this.value">
                </label>
                <label>Width
                    <input type="number" name="width" value="{{.Width}}" min="{{.Limits.MinSize}}" max="{{.Limits.MaxSize}}" step="{{.Limits.SizeStep}}">
                </label>
                <label>Height
                    <input type="number" name="height" value="{{.Height}}" min="{{.Limits.MinSize}}" max="{{.Limits.MaxSize}}" step="{{.Limits.SizeStep}}">
                </label>
            </div>
            <div>
                <label>Denoising Strength: <output id="denoising_out">{{.DenoisingStrength}}</output>
                    <input type="range" name="denoising_strength" value="{{.DenoisingStrength}}" min="{{.Limits.MinDenoising}}" max="{{.Limits.MaxDenoising}}" step="{{.Limits.DenoisingStep}}"
                           oninput="denoising_out.value = this.value">
                </label>
                <label>Mask Blur: <output id="blur_out">{{.MaskBlur}}</output>
                    <input type="range" name="mask_blur" value="{{.MaskBlur}}" min="{{.Limits.MinMaskBlur}}" max="{{.Limits.MaxMaskBlur}}" step="1"
                           oninput="blur_out.value = this.value">
                </label>
                <label>
                    <input type="checkbox" name="invert_mask" {{if .InvertMask}}checked{{end}}> Invert Mask
                </label>
            </div>
        </div>

        <label>Upload the initial image {{if .InitImageName}}(previous: {{.InitImageName}}){{end}}
            <input type="file" name="init_image" accept=".png,.jpg,.jpeg,image/png,image/jpeg">
        </label>
        <label>Upload the mask image {{if .MaskImageName}}(previous: {{.MaskImageName}}){{end}}
            <input type="file" name="mask_image" accept=".png,.jpg,.jpeg,image/png,image/jpeg">
        </label>

        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}

        <p><button type="submit">Run Img2Img Inpainting</button></p>
    </form>
    {{end}}

    {{with .Result}}
    <figure>
        <img src="{{.ImageURL}}" alt="Result">
        <figcaption>Result</figcaption>
    </figure>
    <p>{{.Width}}x{{.Height}} {{.Format}}, {{.ElapsedSec}} s</p>
    <div class="previews">
        <img src="{{.InitURL}}" alt="Initial image">
        <img src="{{.MaskURL}}" alt="Mask image">
    </div>
    {{end}}
</main>
</body>
</html>
`

var statusTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>Inpainting Server Status</title>
</head>
<body>
    <h1>Inpainting Server Status</h1>
    <p>State: {{.State}}{{if eq .State "pending"}} ({{.PendingSeconds}} s){{end}}</p>
    <p>Uptime: {{.Uptime}}</p>
    <p>Stored results: {{.StoredResults}}</p>
    </br>
    <p>Total Requests: {{.TotalRequests}}</p>
    <p>Total error requests: {{.TotalRequestsError}}</p>
    <p>Total requests success rate (req per hour): {{.TotalRequestsSuccessRate}}</p>
    <p>Total requests error rate (req per hour): {{.TotalRequestsErrorRate}}</p>
    </br>
    <p>Runs: {{.RunsTotal}}</p>
    <p>Runs error: {{.RunsError}}</p>
    <p>Runs success rate (req per hour): {{.RunsSuccessRate}}</p>
    <p>Runs error rate (req per hour): {{.RunsErrorRate}}</p>
    {{range .ErrorsByKind}}
    <p>Errors {{.Kind}}: {{.Count}}</p>
    {{end}}
    </br>
    <p>Backend latency mean (s): {{.BackendLatencyMeanSec}}</p>
    <p>Backend latency max (s): {{.BackendLatencyMaxSec}}</p>

    <p><a href="/">Back</a></p>
</body>
</html>
`
